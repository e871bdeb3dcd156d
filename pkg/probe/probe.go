// Package probe describes what a cluster node knows about itself: the
// configured topology and, when available, the live state of the cluster stack.
package probe

import (
	"context"
	"errors"
)

// ErrNoLiveness is returned by probers that cannot report live state
var ErrNoLiveness = errors.New("liveness unavailable")

// Prober returns the current status of the local node
type Prober interface {
	Probe(ctx context.Context) (*Status, error)
}

// Status is the result of one probe
type Status struct {
	Topology Topology
	Live     *Live // nil when liveness is unknown
}

// Topology is the static cluster configuration
type Topology struct {
	ClusterName string          `json:"clustername" toml:"name" yaml:"name"`
	Version     int             `json:"version" toml:"version" yaml:"version"`
	MinQuorum   int             `json:"minquorum" toml:"min_quorum" yaml:"min_quorum"` // 0 means unset
	Locking     string          `json:"locking" toml:"locking" yaml:"locking"`
	Nodes       []NodeConfig    `json:"nodes" toml:"nodes" yaml:"nodes"`
	Services    []ServiceConfig `json:"services" toml:"services" yaml:"services"`
}

// NodeConfig is a configured cluster member
type NodeConfig struct {
	Name  string `json:"name" toml:"name" yaml:"name"`
	Votes int    `json:"votes" toml:"votes" yaml:"votes"`
}

// ServiceConfig is a configured cluster service
type ServiceConfig struct {
	Name      string `json:"name" toml:"name" yaml:"name"`
	Autostart bool   `json:"autostart" toml:"autostart" yaml:"autostart"`
}

// NodeNames returns the names of the configured nodes in configuration order
func (t Topology) NodeNames() []string {
	names := make([]string, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		names = append(names, n.Name)
	}
	return names
}

// NodeState is the membership state of a node as seen by the cluster stack
type NodeState string

// Node states
const (
	NodeMember  NodeState = "member"
	NodeJoining NodeState = "joining"
	NodeDead    NodeState = "dead"
)

// Up reports whether the node counts as running and clustered
func (s NodeState) Up() bool {
	return s == NodeMember || s == NodeJoining
}

// ServiceState is the state of a service as seen by the cluster stack
type ServiceState string

// Service states
const (
	ServiceRunning ServiceState = "running"
	ServiceStopped ServiceState = "stopped"
	ServiceFailed  ServiceState = "failed"
)

// ServiceStatus is the live state of one service
type ServiceStatus struct {
	State ServiceState
	Owner string // node running the service
}

// Live is the state reported by the cluster stack
type Live struct {
	Member   bool // the local node is a cluster member
	Quorate  bool
	Nodes    map[string]NodeState
	Services map[string]ServiceStatus
}

// Static always returns the same topology and no liveness
type Static struct {
	Topology Topology
}

// Probe implements Prober
func (s *Static) Probe(ctx context.Context) (*Status, error) {
	return &Status{Topology: s.Topology}, nil
}

// Liveness returns live state only
type Liveness interface {
	Live(ctx context.Context) (*Live, error)
}
