package engine

import (
	"strconv"

	"github.com/schubergphilis/clumon/pkg/probe"
	"github.com/schubergphilis/clumon/pkg/snapshot"
)

// snapshot tags and attributes exchanged between nodes
const (
	tagMsg     = "msg"
	tagCluster = "cluster"
	tagObjects = "objects"
	tagNode    = "node"
	tagService = "service"

	msgType       = "clusterupdate"
	objectsNodes  = "nodes"
	objectsSvcs   = "services"
	attrType      = "type"
	attrNode      = "node"
	attrVersion   = "version"
	attrMinQuorum = "minQuorum"
	attrLocking   = "locking"
	attrVotes     = "votes"
	attrRunning   = "running"
	attrClustered = "clustered"
	attrAutostart = "autostart"
	attrFailed    = "failed"
	attrNodeName  = "nodename"
)

func named(tag, name string) *snapshot.Node {
	n := snapshot.New(tag)
	n.Set(snapshot.NameAttr, name)
	return n
}

// render builds the snapshot of the local node
func render(self string, status *probe.Status) *snapshot.Node {
	t := status.Topology
	live := status.Live

	cluster := named(tagCluster, t.ClusterName)
	cluster.Set(attrVersion, strconv.Itoa(t.Version))
	if t.MinQuorum > 0 {
		cluster.Set(attrMinQuorum, strconv.Itoa(t.MinQuorum))
	}
	if t.Locking != "" {
		cluster.Set(attrLocking, t.Locking)
	}

	nodes := named(tagObjects, objectsNodes)
	for _, nc := range t.Nodes {
		if nc.Name == "" {
			continue
		}
		n := named(tagNode, nc.Name)
		votes := nc.Votes
		if votes < 0 {
			votes = 1
		}
		n.Set(attrVotes, strconv.Itoa(votes))

		switch {
		case nc.Name == self:
			n.Set(attrRunning, "true")
			n.Set(attrClustered, strconv.FormatBool(live != nil && live.Member))
		case live != nil && live.Nodes != nil:
			if state, ok := live.Nodes[nc.Name]; ok {
				n.Set(attrRunning, strconv.FormatBool(state.Up()))
				n.Set(attrClustered, strconv.FormatBool(state.Up()))
			}
		}
		nodes.AddChild(n)
	}
	cluster.AddChild(nodes)

	services := named(tagObjects, objectsSvcs)
	for _, sc := range t.Services {
		if sc.Name == "" {
			continue
		}
		s := named(tagService, sc.Name)
		s.Set(attrAutostart, strconv.FormatBool(sc.Autostart))
		if live != nil && live.Services != nil {
			if st, ok := live.Services[sc.Name]; ok {
				switch st.State {
				case probe.ServiceRunning:
					s.Set(attrRunning, "true")
					s.Set(attrFailed, "false")
					s.Set(attrNodeName, st.Owner)
				case probe.ServiceStopped:
					s.Set(attrRunning, "false")
					s.Set(attrFailed, "false")
				case probe.ServiceFailed:
					s.Set(attrRunning, "false")
					s.Set(attrFailed, "true")
				}
			}
		}
		services.AddChild(s)
	}
	cluster.AddChild(services)

	msg := snapshot.New(tagMsg)
	msg.Set(attrType, msgType)
	msg.Set(attrNode, self)
	msg.AddChild(cluster)
	return msg
}
