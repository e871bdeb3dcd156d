package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schubergphilis/clumon/pkg/probe"
	"github.com/schubergphilis/clumon/pkg/transport"
)

func TestTwoNodesOverTCP(t *testing.T) {
	resolver := transport.StaticResolver{"A": {"127.0.0.1"}, "B": {"127.0.0.2"}}
	settings := transport.DefaultSettings()
	settings.PollInterval = 20 * time.Millisecond
	settings.ReconnectJitter = 100 * time.Millisecond

	topology := probe.Topology{
		ClusterName: "alpha",
		Version:     1,
		Nodes:       []probe.NodeConfig{{Name: "A", Votes: 1}, {Name: "B", Votes: 1}},
		Services:    []probe.ServiceConfig{{Name: "web", Autostart: true}},
	}

	var engines []*Engine
	for name, addr := range map[string]string{"A": "127.0.0.1:9620", "B": "127.0.0.2:9620"} {
		tr := transport.New(name, addr, transport.WithSettings(settings), transport.WithResolver(resolver))
		require.NoError(t, tr.Start())
		e := New(name, &probe.Static{Topology: topology}, tr, WithSettings(Settings{TickInterval: 50 * time.Millisecond}))
		e.Start()
		t.Cleanup(e.Stop)
		engines = append(engines, e)
	}

	for _, e := range engines {
		e := e
		assert.Eventually(t, func() bool {
			c := e.Cluster()
			if c == nil || len(c.Nodes) != 2 {
				return false
			}
			return c.Node("A").Running && c.Node("B").Running
		}, 10*time.Second, 50*time.Millisecond, "node %s never saw both nodes running", e.Name())
	}
}
