package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command runs an external status program and parses its output. Every line
// is a set of key=value words:
//
//  member=true
//  quorate=true
//  node name=node1 status=member
//  service name=web state=running owner=node1
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// NewCommand returns a Command with the given timeout, 10 seconds when zero
func NewCommand(path string, args []string, timeout time.Duration) *Command {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Command{Path: path, Args: args, Timeout: timeout}
}

// Live implements Liveness
func (c *Command) Live(ctx context.Context) (*Live, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %s", c.Path, c.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w (%s)", c.Path, err, strings.TrimSpace(stderr.String()))
	}
	return ParseLive(out)
}

// ParseLive parses the output of a status program
func ParseLive(out []byte) (*Live, error) {
	live := &Live{
		Nodes:    make(map[string]NodeState),
		Services: make(map[string]ServiceStatus),
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	line := 0
	for scanner.Scan() {
		line++
		words := strings.Fields(scanner.Text())
		if len(words) == 0 || strings.HasPrefix(words[0], "#") {
			continue
		}

		switch words[0] {
		case "node":
			kv := keyValues(words[1:])
			if kv["name"] == "" {
				return nil, fmt.Errorf("line %d: node without name", line)
			}
			state := NodeState(kv["status"])
			switch state {
			case NodeMember, NodeJoining, NodeDead:
			default:
				return nil, fmt.Errorf("line %d: unknown node status %q", line, kv["status"])
			}
			live.Nodes[kv["name"]] = state

		case "service":
			kv := keyValues(words[1:])
			if kv["name"] == "" {
				return nil, fmt.Errorf("line %d: service without name", line)
			}
			state := ServiceState(kv["state"])
			switch state {
			case ServiceRunning, ServiceStopped, ServiceFailed:
			default:
				return nil, fmt.Errorf("line %d: unknown service state %q", line, kv["state"])
			}
			live.Services[kv["name"]] = ServiceStatus{State: state, Owner: kv["owner"]}

		default:
			for k, v := range keyValues(words) {
				switch k {
				case "member":
					live.Member = v == "true"
				case "quorate":
					live.Quorate = v == "true"
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return live, nil
}

func keyValues(words []string) map[string]string {
	kv := make(map[string]string, len(words))
	for _, w := range words {
		parts := strings.SplitN(w, "=", 2)
		if len(parts) == 2 {
			kv[parts[0]] = parts[1]
		}
	}
	return kv
}
