package config

import (
	"fmt"
	"io/ioutil"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	yaml "gopkg.in/yaml.v2"

	"github.com/schubergphilis/clumon/internal/models"
	"github.com/schubergphilis/clumon/pkg/engine"
	"github.com/schubergphilis/clumon/pkg/logging"
	"github.com/schubergphilis/clumon/pkg/probe"
	"github.com/schubergphilis/clumon/pkg/query"
	"github.com/schubergphilis/clumon/pkg/transport"
)

var (
	// Version of application
	Version string
	// VersionBuild number
	VersionBuild string
	// VersionSha git commit of build
	VersionSha string
	// StartTime of application
	StartTime time.Time
)

// DefaultPort is the cluster port used when none is configured
const DefaultPort = 16851

// Config holds your main config
type Config struct {
	Logging  LoggingConfig  `toml:"logging" yaml:"logging" json:"logging"`
	Cluster  ClusterConfig  `toml:"cluster" yaml:"cluster" json:"cluster"`
	Settings Settings       `toml:"settings" yaml:"settings" json:"settings"`
	Probe    ProbeConfig    `toml:"probe" yaml:"probe" json:"probe"`
	Resolver ResolverConfig `toml:"resolver" yaml:"resolver" json:"resolver"`
	Query    QueryConfig    `toml:"query" yaml:"query" json:"query"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics" json:"metrics"`

	file string
}

// LoggingConfig log config
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Output string `toml:"output" yaml:"output" json:"output"`
	Format string `toml:"format" yaml:"format" json:"format"` // text or json
}

// ClusterConfig contains the static cluster topology and our place in it
type ClusterConfig struct {
	Name      string                `toml:"name" yaml:"name" json:"name"`
	Version   int                   `toml:"version" yaml:"version" json:"version"`
	MinQuorum int                   `toml:"min_quorum" yaml:"min_quorum" json:"min_quorum"`
	Locking   string                `toml:"locking" yaml:"locking" json:"locking"`
	NodeName  string                `toml:"node_name" yaml:"node_name" json:"node_name"` // detected when empty
	Bind      string                `toml:"bind" yaml:"bind" json:"bind"`
	Port      int                   `toml:"port" yaml:"port" json:"port"`
	Nodes     []NodeConfig          `toml:"nodes" yaml:"nodes" json:"nodes"`
	Services  []probe.ServiceConfig `toml:"services" yaml:"services" json:"services"`
}

// Settings contains the timing of the engine and the transport
type Settings struct {
	TickInterval    Duration `toml:"tick_interval" yaml:"tick_interval" json:"tick_interval"`
	CacheTTL        Duration `toml:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"`
	PollInterval    Duration `toml:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	ReconnectJitter Duration `toml:"reconnect_jitter" yaml:"reconnect_jitter" json:"reconnect_jitter"`
	ConnectTimeout  Duration `toml:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
	WriteTimeout    Duration `toml:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	MaxFrameSize    int      `toml:"max_frame_size" yaml:"max_frame_size" json:"max_frame_size"`
	QueueSize       int      `toml:"queue_size" yaml:"queue_size" json:"queue_size"`
}

// ProbeConfig points to the program reporting the live cluster state
type ProbeConfig struct {
	Command string   `toml:"command" yaml:"command" json:"command"` // empty means topology only
	Args    []string `toml:"args" yaml:"args" json:"args"`
	Timeout Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
}

// ResolverConfig selects how node names are resolved
type ResolverConfig struct {
	Server string `toml:"server" yaml:"server" json:"server"` // empty means the system resolver
}

// QueryConfig contains the local query socket settings
type QueryConfig struct {
	Socket         string  `toml:"socket" yaml:"socket" json:"socket"`
	MaxConnections int     `toml:"max_connections" yaml:"max_connections" json:"max_connections"`
	Rate           float64 `toml:"rate" yaml:"rate" json:"rate"`
	Burst          int     `toml:"burst" yaml:"burst" json:"burst"`
}

// NodeConfig is a cluster node, votes default to 1 when not set
type NodeConfig struct {
	Name  string `toml:"name" yaml:"name" json:"name"`
	Votes *int   `toml:"votes" yaml:"votes" json:"votes"`
}

// MetricsConfig contains the prometheus endpoint
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr" json:"addr"` // empty disables metrics
}

// Load reads a config file, the format is picked by extension
func Load(file string) (*Config, error) {
	log := logging.For("config/load")
	log.WithField("file", file).Info("Loading config")
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}

	c := new(Config)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".toml":
		log.Debug("Decode toml config")
		if _, err := toml.Decode(string(data), c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
	case ".yaml", ".yml":
		log.Debug("Decode yaml config")
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
	default:
		return nil, fmt.Errorf("unknown config format for %s (allowed are .toml and .yaml)", file)
	}

	log.Debug("Check config")
	c.file = file
	c.setDefaults()
	if err := c.Verify(); err != nil {
		return nil, fmt.Errorf("verify %s: %w", file, err)
	}
	return c, nil
}

// File returns the file the config was loaded from
func (c *Config) File() string {
	return c.file
}

func (c *Config) setDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Cluster.Port == 0 {
		c.Cluster.Port = DefaultPort
	}
	for i := range c.Cluster.Nodes {
		if c.Cluster.Nodes[i].Votes == nil {
			votes := 1
			c.Cluster.Nodes[i].Votes = &votes
		}
	}

	es := engine.DefaultSettings()
	c.Settings.TickInterval.setDefault(es.TickInterval)
	c.Settings.CacheTTL.setDefault(es.CacheTTL)

	ts := transport.DefaultSettings()
	c.Settings.PollInterval.setDefault(ts.PollInterval)
	c.Settings.ReconnectJitter.setDefault(ts.ReconnectJitter)
	c.Settings.ConnectTimeout.setDefault(ts.ConnectTimeout)
	c.Settings.WriteTimeout.setDefault(ts.WriteTimeout)
	if c.Settings.MaxFrameSize == 0 {
		c.Settings.MaxFrameSize = ts.MaxFrameSize
	}
	if c.Settings.QueueSize == 0 {
		c.Settings.QueueSize = ts.QueueSize
	}

	c.Probe.Timeout.setDefault(10 * time.Second)

	qs := query.DefaultSettings()
	if c.Query.Socket == "" {
		c.Query.Socket = query.DefaultSocket
	}
	if c.Query.MaxConnections == 0 {
		c.Query.MaxConnections = qs.MaxConnections
	}
	if c.Query.Rate == 0 {
		c.Query.Rate = qs.Rate
	}
	if c.Query.Burst == 0 {
		c.Query.Burst = qs.Burst
	}
}

// Verify checks the config for errors
func (c *Config) Verify() error {
	if c.Cluster.Name == "" {
		return fmt.Errorf("cluster name is required")
	}
	if !models.ValidName(c.Cluster.Name) {
		return fmt.Errorf("cluster name %q contains whitespace or control characters", c.Cluster.Name)
	}
	if !models.ValidValue(c.Cluster.Locking) {
		return fmt.Errorf("locking %q contains whitespace or control characters", c.Cluster.Locking)
	}
	if len(c.Cluster.Nodes) == 0 {
		return fmt.Errorf("cluster %s has no nodes", c.Cluster.Name)
	}
	seen := make(map[string]bool)
	for _, n := range c.Cluster.Nodes {
		if n.Name == "" {
			return fmt.Errorf("cluster %s has a node without name", c.Cluster.Name)
		}
		if !models.ValidName(n.Name) {
			return fmt.Errorf("node name %q contains whitespace or control characters", n.Name)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate node %s in cluster %s", n.Name, c.Cluster.Name)
		}
		seen[n.Name] = true
		if n.Votes != nil && *n.Votes < 0 {
			return fmt.Errorf("node %s has negative votes", n.Name)
		}
	}
	services := make(map[string]bool)
	for _, s := range c.Cluster.Services {
		if s.Name == "" {
			return fmt.Errorf("cluster %s has a service without name", c.Cluster.Name)
		}
		if !models.ValidName(s.Name) {
			return fmt.Errorf("service name %q contains whitespace or control characters", s.Name)
		}
		if services[s.Name] {
			return fmt.Errorf("duplicate service %s in cluster %s", s.Name, c.Cluster.Name)
		}
		services[s.Name] = true
	}
	if c.Cluster.NodeName != "" && !seen[c.Cluster.NodeName] {
		return fmt.Errorf("node_name %s is not a node of cluster %s", c.Cluster.NodeName, c.Cluster.Name)
	}
	if c.Cluster.Port < 1 || c.Cluster.Port > 65535 {
		return fmt.Errorf("cluster port %d out of range", c.Cluster.Port)
	}
	if c.Cluster.Bind != "" && net.ParseIP(c.Cluster.Bind) == nil {
		return fmt.Errorf("cluster bind %s is not an ip address", c.Cluster.Bind)
	}
	if c.Cluster.MinQuorum < 0 {
		return fmt.Errorf("min_quorum %d is negative", c.Cluster.MinQuorum)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format %s (allowed are text and json)", c.Logging.Format)
	}
	return nil
}

// Topology returns the static cluster configuration
func (c *Config) Topology() probe.Topology {
	return probe.Topology{
		ClusterName: c.Cluster.Name,
		Version:     c.Cluster.Version,
		MinQuorum:   c.Cluster.MinQuorum,
		Locking:     c.Cluster.Locking,
		Nodes:       c.nodes(),
		Services:    append([]probe.ServiceConfig(nil), c.Cluster.Services...),
	}
}

func (c *Config) nodes() []probe.NodeConfig {
	nodes := make([]probe.NodeConfig, 0, len(c.Cluster.Nodes))
	for _, n := range c.Cluster.Nodes {
		votes := 1
		if n.Votes != nil {
			votes = *n.Votes
		}
		nodes = append(nodes, probe.NodeConfig{Name: n.Name, Votes: votes})
	}
	return nodes
}

// ListenAddr returns the address of the cluster port
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Cluster.Bind, strconv.Itoa(c.Cluster.Port))
}

// EngineSettings returns the engine part of the settings
func (c *Config) EngineSettings() engine.Settings {
	return engine.Settings{
		TickInterval: c.Settings.TickInterval.Duration,
		CacheTTL:     c.Settings.CacheTTL.Duration,
	}
}

// TransportSettings returns the transport part of the settings
func (c *Config) TransportSettings() transport.Settings {
	return transport.Settings{
		PollInterval:    c.Settings.PollInterval.Duration,
		ReconnectJitter: c.Settings.ReconnectJitter.Duration,
		ConnectTimeout:  c.Settings.ConnectTimeout.Duration,
		WriteTimeout:    c.Settings.WriteTimeout.Duration,
		MaxFrameSize:    c.Settings.MaxFrameSize,
		QueueSize:       c.Settings.QueueSize,
	}
}

// QuerySettings returns the query server settings
func (c *Config) QuerySettings() query.Settings {
	return query.Settings{
		MaxConnections: c.Query.MaxConnections,
		Rate:           c.Query.Rate,
		Burst:          c.Query.Burst,
	}
}
