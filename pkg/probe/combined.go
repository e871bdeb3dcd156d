package probe

import (
	"context"

	"github.com/schubergphilis/clumon/pkg/logging"
)

// Combined joins a topology source with a liveness source. A failing liveness
// source leaves the topology known and the liveness unknown.
type Combined struct {
	Topology Prober
	Liveness Liveness
	Log      logging.SimpleLogger
}

// Probe implements Prober
func (c *Combined) Probe(ctx context.Context) (*Status, error) {
	status, err := c.Topology.Probe(ctx)
	if err != nil {
		return nil, err
	}
	if c.Liveness == nil {
		return status, nil
	}

	live, err := c.Liveness.Live(ctx)
	if err != nil {
		if c.Log != nil {
			c.Log.Warnf("liveness probe failed, using topology only", "error", err)
		}
		status.Live = nil
		return status, nil
	}

	// without quorum the per node and per service state is not trustworthy
	if !live.Quorate {
		live.Nodes = nil
		live.Services = nil
	}
	status.Live = live
	return status, nil
}
