package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schubergphilis/clumon/pkg/logging"
	"github.com/schubergphilis/clumon/pkg/probe"
	"github.com/schubergphilis/clumon/pkg/query"
)

func init() {
	logging.Configure("stdout", "error")
}

func TestLoadToml(t *testing.T) {
	c, err := Load("testdata/cluster.toml")
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "text", c.Logging.Format)
	assert.Equal(t, "alpha", c.Cluster.Name)
	assert.Equal(t, "127.0.0.1:16900", c.ListenAddr())
	assert.Equal(t, "testdata/cluster.toml", c.File())

	topo := c.Topology()
	assert.Equal(t, 4, topo.Version)
	assert.Equal(t, "cman", topo.Locking)
	assert.Equal(t, []probe.NodeConfig{{Name: "node1", Votes: 1}, {Name: "node2", Votes: 2}, {Name: "node3", Votes: 1}}, topo.Nodes)
	assert.Equal(t, []probe.ServiceConfig{{Name: "web", Autostart: true}, {Name: "db"}}, topo.Services)

	es := c.EngineSettings()
	assert.Equal(t, 2*time.Second, es.TickInterval)
	assert.Equal(t, 4*time.Second, es.CacheTTL)

	ts := c.TransportSettings()
	assert.Equal(t, time.Second, ts.ReconnectJitter)
	assert.Equal(t, 500*time.Millisecond, ts.PollInterval)
	assert.Equal(t, 1<<20, ts.MaxFrameSize)

	assert.Equal(t, "/usr/sbin/clustat-status", c.Probe.Command)
	assert.Equal(t, []string{"--brief"}, c.Probe.Args)
	assert.Equal(t, 3*time.Second, c.Probe.Timeout.Duration)
	assert.Equal(t, "10.0.0.53", c.Resolver.Server)
	assert.Equal(t, "/tmp/clumond-test.sock", c.Query.Socket)
	assert.Equal(t, "127.0.0.1:9110", c.Metrics.Addr)
}

func TestLoadYaml(t *testing.T) {
	c, err := Load("testdata/cluster.yaml")
	require.NoError(t, err)

	assert.Equal(t, "json", c.Logging.Format)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "beta", c.Cluster.Name)
	assert.Equal(t, 2, c.Topology().MinQuorum)
	assert.Equal(t, time.Second, c.EngineSettings().TickInterval)
	assert.Equal(t, 8*time.Second, c.EngineSettings().CacheTTL)
	assert.Equal(t, ":16851", c.ListenAddr())
	assert.Equal(t, query.DefaultSocket, c.Query.Socket)
	assert.Equal(t, 10*time.Second, c.Probe.Timeout.Duration)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("nonexistantfile.toml")
	assert.Error(t, err)

	_, err = Load("testdata/broken.toml")
	assert.Error(t, err)

	_, err = Load("testdata/duplicate.toml")
	assert.Error(t, err)

	dir := t.TempDir()
	ini := filepath.Join(dir, "cluster.ini")
	require.NoError(t, os.WriteFile(ini, []byte("name=alpha"), 0600))
	_, err = Load(ini)
	assert.Error(t, err)
}

func intPtr(i int) *int {
	return &i
}

func TestVerify(t *testing.T) {
	valid := func() *Config {
		c := &Config{Cluster: ClusterConfig{Name: "alpha", Nodes: []NodeConfig{{Name: "a"}}}}
		c.setDefaults()
		return c
	}
	require.NoError(t, valid().Verify())

	tests := map[string]func(c *Config){
		"no name":          func(c *Config) { c.Cluster.Name = "" },
		"no nodes":         func(c *Config) { c.Cluster.Nodes = nil },
		"negative votes":   func(c *Config) { c.Cluster.Nodes[0].Votes = intPtr(-1) },
		"spaced cluster":   func(c *Config) { c.Cluster.Name = "alpha beta" },
		"spaced node":      func(c *Config) { c.Cluster.Nodes[0].Name = "a\nobject=node" },
		"spaced service":   func(c *Config) { c.Cluster.Services = []probe.ServiceConfig{{Name: "my svc"}} },
		"spaced locking":   func(c *Config) { c.Cluster.Locking = "cman dlm" },
		"port":             func(c *Config) { c.Cluster.Port = 70000 },
		"bind":             func(c *Config) { c.Cluster.Bind = "localhost" },
		"unknown node":     func(c *Config) { c.Cluster.NodeName = "z" },
		"format":           func(c *Config) { c.Logging.Format = "xml" },
		"quorum":           func(c *Config) { c.Cluster.MinQuorum = -2 },
		"duplicate svc":    func(c *Config) { c.Cluster.Services = []probe.ServiceConfig{{Name: "s"}, {Name: "s"}} },
		"nameless service": func(c *Config) { c.Cluster.Services = []probe.ServiceConfig{{}} },
	}
	for name, change := range tests {
		c := valid()
		change(c)
		assert.Error(t, c.Verify(), name)
	}
}

func TestZeroVotes(t *testing.T) {
	dir := t.TempDir()
	toml := filepath.Join(dir, "cluster.toml")
	require.NoError(t, os.WriteFile(toml, []byte(`
[cluster]
name = "alpha"

[[cluster.nodes]]
name = "quorumdisk"
votes = 0

[[cluster.nodes]]
name = "node1"
`), 0600))
	c, err := Load(toml)
	require.NoError(t, err)
	assert.Equal(t, []probe.NodeConfig{{Name: "quorumdisk", Votes: 0}, {Name: "node1", Votes: 1}}, c.Topology().Nodes)

	yml := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(`
cluster:
  name: alpha
  nodes:
    - name: quorumdisk
      votes: 0
    - name: node1
`), 0600))
	c, err = Load(yml)
	require.NoError(t, err)
	assert.Equal(t, []probe.NodeConfig{{Name: "quorumdisk", Votes: 0}, {Name: "node1", Votes: 1}}, c.Topology().Nodes)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)
	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cluster.toml")
	data, err := os.ReadFile("testdata/cluster.toml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, data, 0600))

	w, err := NewWatcher(file)
	require.NoError(t, err)
	defer w.Stop()

	// other files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), data, 0600))
	select {
	case <-w.Changed():
		t.Fatal("change reported for another file")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(file, append(data, '\n'), 0600))
	select {
	case <-w.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
