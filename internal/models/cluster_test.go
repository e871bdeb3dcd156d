package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCluster() *Cluster {
	c := &Cluster{
		Name:    "alpha",
		Version: 4,
		Locking: "cman",
		Nodes: []*Node{
			{Name: "b", Votes: 1, Running: true, InCluster: true},
			{Name: "a", Votes: 1, Running: true, InCluster: true},
			{Name: "c", Votes: 1},
		},
		Services: []*Service{
			{Name: "svc2", NodeName: "gone", Running: true},
			{Name: "svc1", Autostart: true, Running: true, NodeName: "a"},
		},
	}
	c.MinQuorum = DefaultMinQuorum(c.Nodes)
	c.Sort()
	c.Link()
	return c
}

func TestDefaultMinQuorum(t *testing.T) {
	assert.Equal(t, 2, DefaultMinQuorum([]*Node{{Votes: 1}, {Votes: 1}, {Votes: 1}}))
	assert.Equal(t, 3, DefaultMinQuorum([]*Node{{Votes: 2}, {Votes: 2}}))
	assert.Equal(t, 1, DefaultMinQuorum(nil))
}

func TestLink(t *testing.T) {
	c := testCluster()
	a := c.Node("a")
	require.NotNil(t, a)
	require.Len(t, a.Services, 1)
	assert.Same(t, c.Service("svc1"), a.Services[0])

	// placed on a node outside the cluster: not linked
	for _, n := range c.Nodes {
		for _, s := range n.Services {
			assert.NotEqual(t, "svc2", s.Name)
		}
	}
}

func TestCopyIsDeep(t *testing.T) {
	c := testCluster()
	cp := c.Copy()

	cp.Node("a").Running = false
	cp.Service("svc1").Failed = true
	assert.True(t, c.Node("a").Running)
	assert.False(t, c.Service("svc1").Failed)

	assert.Same(t, cp.Service("svc1"), cp.Node("a").Services[0])
	assert.Nil(t, (*Cluster)(nil).Copy())
}

func TestQuorate(t *testing.T) {
	c := testCluster()
	assert.Equal(t, 2, c.RunningVotes())
	assert.True(t, c.Quorate())

	c.Node("b").Running = false
	assert.False(t, c.Quorate())
}

func TestDumpRoundTrip(t *testing.T) {
	c := testCluster()
	dump := c.Dump()
	assert.Contains(t, dump, "object=cluster name=alpha version=4 minQuorum=2 locking=cman\n")
	assert.Contains(t, dump, "object=node name=a votes=1 running=true clustered=true\n")
	assert.Contains(t, dump, "object=service name=svc1 autostart=true running=true failed=false nodename=a\n")

	parsed, err := ParseDump(dump)
	require.NoError(t, err)
	assert.Equal(t, c.Dump(), parsed.Dump())
	assert.Len(t, parsed.Node("a").Services, 1)
}

func TestParseDumpEmpty(t *testing.T) {
	c, err := ParseDump("")
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, "", (*Cluster)(nil).Dump())
}

func TestParseDumpErrors(t *testing.T) {
	_, err := ParseDump("object=node name=a\n")
	assert.Error(t, err)

	_, err = ParseDump("object=cluster name=a version=x\n")
	assert.Error(t, err)

	_, err = ParseDump("object=cluster name=a\nobject=fence name=f\n")
	assert.Error(t, err)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("node-1.example"))
	assert.True(t, ValidName("a=b"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("my svc"))
	assert.False(t, ValidName("b\n\nobject=node"))
	assert.False(t, ValidName("tab\there"))
	assert.False(t, ValidName("nul\x00"))

	assert.True(t, ValidValue(""))
	assert.False(t, ValidValue("cman dlm"))
}
