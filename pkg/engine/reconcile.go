package engine

import (
	"sort"
	"strconv"

	"github.com/schubergphilis/clumon/internal/models"
	"github.com/schubergphilis/clumon/pkg/snapshot"
)

// view is the cluster subtree of one peer snapshot
type view struct {
	peer    string
	version int
	cluster *snapshot.Node
}

// reconcile merges the fresh snapshots into a cluster view
func (e *Engine) reconcile(entries map[string]cacheEntry) *models.Cluster {
	views := e.selectViews(entries)
	if len(views) == 0 {
		return nil
	}

	merged := mergeViews(views)
	if merged == nil {
		return nil
	}

	// a fresh snapshot proves its sender is alive
	if nodes := merged.Child(objectsNodes); nodes != nil {
		for peer := range entries {
			if n := nodes.Child(peer); n != nil {
				n.Set(attrRunning, "true")
			}
		}
	}
	return materialize(merged)
}

// selectViews parses every entry and returns the usable cluster subtrees, sorted by peer
func (e *Engine) selectViews(entries map[string]cacheEntry) []view {
	e.RLock()
	clusterName := e.clusterName
	e.RUnlock()

	var views []view
	for peer, entry := range entries {
		root, err := snapshot.Parse(entry.frame)
		if err != nil {
			e.metrics.ParseError(peer)
			e.log.Warnf("discarding malformed snapshot", "node", e.name, "peer", peer, "error", err)
			continue
		}
		if root.Tag != tagMsg || root.Attr(attrType) != msgType {
			e.log.Debugf("discarding unknown message", "node", e.name, "peer", peer, "tag", root.Tag, "type", root.Attr(attrType))
			continue
		}

		for _, c := range root.Children() {
			if c.Tag != tagCluster {
				continue
			}
			if !models.ValidName(c.Name()) {
				e.metrics.ParseError(peer)
				e.log.Warnf("discarding snapshot with invalid cluster name", "node", e.name, "peer", peer, "cluster", c.Name())
				continue
			}
			if clusterName != "" && c.Name() != clusterName {
				e.log.Debugf("discarding snapshot of other cluster", "node", e.name, "peer", peer, "cluster", c.Name())
				continue
			}
			version, err := strconv.Atoi(c.Attr(attrVersion))
			if err != nil {
				e.log.Debugf("discarding snapshot without version", "node", e.name, "peer", peer, "version", c.Attr(attrVersion))
				continue
			}
			views = append(views, view{peer: peer, version: version, cluster: c})
		}
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i].peer < views[j].peer })
	return views
}

// mergeViews merges the views with the highest version in the given order
func mergeViews(views []view) *snapshot.Node {
	max := views[0].version
	for _, v := range views[1:] {
		if v.version > max {
			max = v.version
		}
	}

	var merged *snapshot.Node
	for _, v := range views {
		if v.version != max {
			continue
		}
		if merged == nil {
			merged = v.cluster.Clone()
			continue
		}
		merged.Merge(v.cluster)
	}
	return merged
}

// materialize converts a merged cluster subtree to the typed view. Objects
// whose names cannot be dumped are left out, unusable values are cleared.
func materialize(c *snapshot.Node) *models.Cluster {
	cluster := &models.Cluster{
		Name:    c.Name(),
		Locking: c.Attr(attrLocking),
	}
	if !models.ValidValue(cluster.Locking) {
		cluster.Locking = ""
	}
	cluster.Version, _ = strconv.Atoi(c.Attr(attrVersion))

	if nodes := c.Child(objectsNodes); nodes != nil {
		for _, n := range nodes.Children() {
			if n.Tag != tagNode || !models.ValidName(n.Name()) {
				continue
			}
			votes, err := strconv.Atoi(n.Attr(attrVotes))
			if err != nil || votes < 0 {
				votes = 1
			}
			cluster.Nodes = append(cluster.Nodes, &models.Node{
				Name:      n.Name(),
				Votes:     votes,
				Running:   n.Attr(attrRunning) == "true",
				InCluster: n.Attr(attrClustered) == "true",
			})
		}
	}

	if services := c.Child(objectsSvcs); services != nil {
		for _, s := range services.Children() {
			if s.Tag != tagService || !models.ValidName(s.Name()) {
				continue
			}
			owner := s.Attr(attrNodeName)
			if !models.ValidValue(owner) {
				owner = ""
			}
			cluster.Services = append(cluster.Services, &models.Service{
				Name:      s.Name(),
				Autostart: s.Attr(attrAutostart) == "true",
				Running:   s.Attr(attrRunning) == "true",
				Failed:    s.Attr(attrFailed) == "true",
				NodeName:  owner,
			})
		}
	}

	if q, err := strconv.Atoi(c.Attr(attrMinQuorum)); err == nil && q > 0 {
		cluster.MinQuorum = q
	} else {
		cluster.MinQuorum = models.DefaultMinQuorum(cluster.Nodes)
	}

	cluster.Sort()
	cluster.Link()
	return cluster
}
