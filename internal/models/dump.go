package models

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ValidName reports whether s can be written to the dump as one value.
// Names are non-empty and free of whitespace and control characters.
func ValidName(s string) bool {
	return s != "" && ValidValue(s)
}

// ValidValue is ValidName for optional values, the empty string is allowed
func ValidValue(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Dump renders the line based form served to local callers:
//
//  object=cluster name=alpha version=4 minQuorum=2 locking=cman
//  object=node name=a votes=1 running=true clustered=true
//  object=service name=svc1 autostart=true running=true failed=false nodename=a
func (c *Cluster) Dump() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "object=cluster name=%s version=%d minQuorum=%d", c.Name, c.Version, c.MinQuorum)
	if c.Locking != "" {
		fmt.Fprintf(&b, " locking=%s", c.Locking)
	}
	b.WriteString("\n")
	for _, n := range c.Nodes {
		fmt.Fprintf(&b, "object=node name=%s votes=%d running=%t clustered=%t\n", n.Name, n.Votes, n.Running, n.InCluster)
	}
	for _, s := range c.Services {
		fmt.Fprintf(&b, "object=service name=%s autostart=%t running=%t failed=%t nodename=%s\n", s.Name, s.Autostart, s.Running, s.Failed, s.NodeName)
	}
	return b.String()
}

// ParseDump reads the output of Dump back into a Cluster. An empty dump
// returns nil without error.
func ParseDump(text string) (*Cluster, error) {
	var cluster *Cluster
	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		fields := parseFields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields["object"] {
		case "cluster":
			version, err := atoi(fields, "version")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			quorum, err := atoi(fields, "minQuorum")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			cluster = &Cluster{Name: fields["name"], Version: version, MinQuorum: quorum, Locking: fields["locking"]}

		case "node":
			if cluster == nil {
				return nil, fmt.Errorf("line %d: node before cluster", line)
			}
			votes, err := atoi(fields, "votes")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			cluster.Nodes = append(cluster.Nodes, &Node{
				Name:      fields["name"],
				Votes:     votes,
				Running:   fields["running"] == "true",
				InCluster: fields["clustered"] == "true",
			})

		case "service":
			if cluster == nil {
				return nil, fmt.Errorf("line %d: service before cluster", line)
			}
			cluster.Services = append(cluster.Services, &Service{
				Name:      fields["name"],
				Autostart: fields["autostart"] == "true",
				Running:   fields["running"] == "true",
				Failed:    fields["failed"] == "true",
				NodeName:  fields["nodename"],
			})

		default:
			return nil, fmt.Errorf("line %d: unknown object %q", line, fields["object"])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cluster != nil {
		cluster.Link()
	}
	return cluster, nil
}

func parseFields(line string) map[string]string {
	fields := make(map[string]string)
	for _, word := range strings.Fields(line) {
		kv := strings.SplitN(word, "=", 2)
		if len(kv) != 2 {
			continue
		}
		fields[kv[0]] = kv[1]
	}
	return fields
}

func atoi(fields map[string]string, key string) (int, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return i, nil
}
