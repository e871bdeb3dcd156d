package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schubergphilis/clumon/pkg/engine"
	"github.com/schubergphilis/clumon/pkg/transport"
)

// both receivers must satisfy the interfaces of their packages
var (
	_ transport.Metrics = (*TransportMetrics)(nil)
	_ engine.Metrics    = (*EngineMetrics)(nil)
)

func TestTransportMetrics(t *testing.T) {
	r := NewRegistry()
	m := r.Transport()

	m.ConnectedPeers(2)
	m.FrameReceived("node2")
	m.FrameReceived("node2")
	m.FrameSent("node3")
	m.DialFailed("node3")
	m.ConnectionRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ConnectedPeers))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.FramesReceived.WithLabelValues("node2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FramesSent.WithLabelValues("node3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DialFailures.WithLabelValues("node3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RejectedConnections))
}

func TestEngineMetrics(t *testing.T) {
	r := NewRegistry()
	m := r.Engine()

	m.Tick()
	m.Tick()
	m.ProbeFailed()
	m.ParseError("node2")
	m.CacheEntries(3)
	m.ClusterVersion(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ProbeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ParseErrors.WithLabelValues("node2")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.CacheEntries))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.ClusterVersion))
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.Engine().ClusterVersion(4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "clumon_engine_cluster_version 4")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServer(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewRegistry())
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
