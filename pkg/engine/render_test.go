package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schubergphilis/clumon/pkg/probe"
)

func TestRenderTopologyOnly(t *testing.T) {
	topo := threeNodes(4)
	topo.Nodes[1].Votes = 0
	topo.Nodes[2].Votes = -3
	msg := render("A", &probe.Status{Topology: topo})

	assert.Equal(t, "msg", msg.Tag)
	assert.Equal(t, "clusterupdate", msg.Attr("type"))
	assert.Equal(t, "A", msg.Attr("node"))

	cluster := msg.Child("alpha")
	require.NotNil(t, cluster)
	assert.Equal(t, "4", cluster.Attr("version"))
	_, hasQuorum := cluster.Get("minQuorum")
	assert.False(t, hasQuorum)

	nodes := cluster.Child("nodes")
	require.NotNil(t, nodes)
	assert.Equal(t, 3, nodes.Len())
	assert.Equal(t, "true", nodes.Child("A").Attr("running"))
	assert.Equal(t, "false", nodes.Child("A").Attr("clustered"))
	assert.Equal(t, "0", nodes.Child("B").Attr("votes"))
	assert.Equal(t, "1", nodes.Child("C").Attr("votes"))
	_, known := nodes.Child("B").Get("running")
	assert.False(t, known)

	svc := cluster.Child("services").Child("svc1")
	require.NotNil(t, svc)
	assert.Equal(t, "true", svc.Attr("autostart"))
	_, known = svc.Get("running")
	assert.False(t, known)
}

func TestRenderLive(t *testing.T) {
	topo := threeNodes(4)
	topo.MinQuorum = 3
	topo.Services = append(topo.Services, probe.ServiceConfig{Name: "svc2"}, probe.ServiceConfig{Name: "svc3"})
	live := quorateLive()
	live.Nodes["B"] = probe.NodeJoining
	live.Services = map[string]probe.ServiceStatus{
		"svc1": {State: probe.ServiceRunning, Owner: "B"},
		"svc2": {State: probe.ServiceStopped},
		"svc3": {State: probe.ServiceFailed},
	}

	cluster := render("A", &probe.Status{Topology: topo, Live: live}).Child("alpha")
	assert.Equal(t, "3", cluster.Attr("minQuorum"))

	nodes := cluster.Child("nodes")
	assert.Equal(t, "true", nodes.Child("A").Attr("clustered"))
	assert.Equal(t, "true", nodes.Child("B").Attr("running"))
	assert.Equal(t, "true", nodes.Child("B").Attr("clustered"))
	assert.Equal(t, "false", nodes.Child("C").Attr("running"))
	assert.Equal(t, "false", nodes.Child("C").Attr("clustered"))

	services := cluster.Child("services")
	assert.Equal(t, map[string]string{"name": "svc1", "autostart": "true", "running": "true", "failed": "false", "nodename": "B"}, services.Child("svc1").Attrs())
	assert.Equal(t, "false", services.Child("svc2").Attr("running"))
	assert.Equal(t, "false", services.Child("svc2").Attr("failed"))
	assert.Equal(t, "false", services.Child("svc3").Attr("running"))
	assert.Equal(t, "true", services.Child("svc3").Attr("failed"))
}

func TestVotesKeptThroughMaterialize(t *testing.T) {
	topo := threeNodes(4)
	topo.Nodes[0].Votes = 0
	topo.Nodes[1].Votes = 3
	cluster := render("A", &probe.Status{Topology: topo}).Child("alpha")
	require.NotNil(t, cluster)
	cluster.Child("nodes").Child("C").Set("votes", "many")

	c := materialize(cluster)
	require.Len(t, c.Nodes, 3)
	assert.Equal(t, 0, c.Node("A").Votes)
	assert.Equal(t, 3, c.Node("B").Votes)
	assert.Equal(t, 1, c.Node("C").Votes)
	assert.Equal(t, 3, c.MinQuorum)
}
