package models

import "sort"

// Cluster is the reconciled view of the whole cluster
type Cluster struct {
	Name      string
	Version   int
	MinQuorum int
	Locking   string
	Nodes     []*Node
	Services  []*Service
}

// Node is a cluster member
type Node struct {
	Name      string
	Votes     int
	Running   bool
	InCluster bool
	// Services placed on this node, references into Cluster.Services
	Services []*Service
}

// Service is a managed service and where it runs
type Service struct {
	Name      string
	Autostart bool
	Running   bool
	Failed    bool
	NodeName  string
}

// DefaultMinQuorum returns floor(sum(votes)/2)+1
func DefaultMinQuorum(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += n.Votes
	}
	return total/2 + 1
}

// Node returns the node with the given name, or nil
func (c *Cluster) Node(name string) *Node {
	for _, n := range c.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Service returns the service with the given name, or nil
func (c *Cluster) Service(name string) *Service {
	for _, s := range c.Services {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Sort orders nodes and services by name
func (c *Cluster) Sort() {
	sort.Slice(c.Nodes, func(i, j int) bool { return c.Nodes[i].Name < c.Nodes[j].Name })
	sort.Slice(c.Services, func(i, j int) bool { return c.Services[i].Name < c.Services[j].Name })
}

// Link rebuilds the node to service references. Services placed on a node
// that is not part of the cluster stay unlinked.
func (c *Cluster) Link() {
	byName := make(map[string]*Node, len(c.Nodes))
	for _, n := range c.Nodes {
		n.Services = nil
		byName[n.Name] = n
	}
	for _, s := range c.Services {
		if s.NodeName == "" {
			continue
		}
		if n, ok := byName[s.NodeName]; ok {
			n.Services = append(n.Services, s)
		}
	}
}

// RunningVotes sums the votes of the running nodes that are cluster members
func (c *Cluster) RunningVotes() int {
	votes := 0
	for _, n := range c.Nodes {
		if n.Running && n.InCluster {
			votes += n.Votes
		}
	}
	return votes
}

// Quorate reports whether the running members hold MinQuorum votes
func (c *Cluster) Quorate() bool {
	return c.RunningVotes() >= c.MinQuorum
}

// Copy returns a deep copy with its own links
func (c *Cluster) Copy() *Cluster {
	if c == nil {
		return nil
	}
	out := &Cluster{
		Name:      c.Name,
		Version:   c.Version,
		MinQuorum: c.MinQuorum,
		Locking:   c.Locking,
		Nodes:     make([]*Node, 0, len(c.Nodes)),
		Services:  make([]*Service, 0, len(c.Services)),
	}
	for _, n := range c.Nodes {
		out.Nodes = append(out.Nodes, &Node{Name: n.Name, Votes: n.Votes, Running: n.Running, InCluster: n.InCluster})
	}
	for _, s := range c.Services {
		cp := *s
		out.Services = append(out.Services, &cp)
	}
	out.Link()
	return out
}
