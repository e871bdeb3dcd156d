// Package metrics exposes the counters of the engine and the transport in
// prometheus format.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schubergphilis/clumon/pkg/logging"
)

const namespace = "clumon"

// Registry holds all application metrics
type Registry struct {
	registry *prometheus.Registry

	// Transport metrics
	ConnectedPeers      prometheus.Gauge
	FramesReceived      *prometheus.CounterVec
	FramesSent          *prometheus.CounterVec
	DialFailures        *prometheus.CounterVec
	RejectedConnections prometheus.Counter

	// Engine metrics
	Ticks          prometheus.Counter
	ParseErrors    *prometheus.CounterVec
	ProbeFailures  prometheus.Counter
	CacheEntries   prometheus.Gauge
	ClusterVersion prometheus.Gauge
}

// NewRegistry creates the metrics and registers them with a private registry
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "transport", Name: "connected_peers",
			Help: "Number of peers with a live connection.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "frames_received_total",
			Help: "Frames received per peer.",
		}, []string{"peer"}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "frames_sent_total",
			Help: "Frames fully written per peer.",
		}, []string{"peer"}),
		DialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "dial_failures_total",
			Help: "Failed connection attempts per peer.",
		}, []string{"peer"}),
		RejectedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "transport", Name: "rejected_connections_total",
			Help: "Incoming connections not matching any peer.",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "ticks_total",
			Help: "Reconciliation cycles run.",
		}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "parse_errors_total",
			Help: "Malformed snapshots per peer.",
		}, []string{"peer"}),
		ProbeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "probe_failures_total",
			Help: "Failed probes of the local node.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "cache_entries",
			Help: "Fresh snapshots in the peer cache.",
		}),
		ClusterVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "cluster_version",
			Help: "Configuration version of the merged cluster view.",
		}),
	}

	r.registry.MustRegister(
		r.ConnectedPeers, r.FramesReceived, r.FramesSent, r.DialFailures, r.RejectedConnections,
		r.Ticks, r.ParseErrors, r.ProbeFailures, r.CacheEntries, r.ClusterVersion,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler returns the /metrics handler of this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog: logging.StandardLog("metrics/handler"),
	})
}

// Transport returns the receiver for transport metrics
func (r *Registry) Transport() *TransportMetrics {
	return &TransportMetrics{r: r}
}

// Engine returns the receiver for engine metrics
func (r *Registry) Engine() *EngineMetrics {
	return &EngineMetrics{r: r}
}

// TransportMetrics implements transport.Metrics
type TransportMetrics struct {
	r *Registry
}

func (m *TransportMetrics) ConnectedPeers(n int)      { m.r.ConnectedPeers.Set(float64(n)) }
func (m *TransportMetrics) FrameReceived(peer string) { m.r.FramesReceived.WithLabelValues(peer).Inc() }
func (m *TransportMetrics) FrameSent(peer string)     { m.r.FramesSent.WithLabelValues(peer).Inc() }
func (m *TransportMetrics) DialFailed(peer string)    { m.r.DialFailures.WithLabelValues(peer).Inc() }
func (m *TransportMetrics) ConnectionRejected()       { m.r.RejectedConnections.Inc() }

// EngineMetrics implements engine.Metrics
type EngineMetrics struct {
	r *Registry
}

func (m *EngineMetrics) Tick()                      { m.r.Ticks.Inc() }
func (m *EngineMetrics) ProbeFailed()               { m.r.ProbeFailures.Inc() }
func (m *EngineMetrics) ParseError(peer string)     { m.r.ParseErrors.WithLabelValues(peer).Inc() }
func (m *EngineMetrics) CacheEntries(n int)         { m.r.CacheEntries.Set(float64(n)) }
func (m *EngineMetrics) ClusterVersion(version int) { m.r.ClusterVersion.Set(float64(version)) }

// Server serves /metrics over http
type Server struct {
	addr     string
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server for addr
func NewServer(addr string, r *Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &Server{
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          logging.StandardLog("metrics/server"),
		},
	}
}

// Start listens and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	log := logging.For("metrics/server")
	log.WithField("addr", ln.Addr().String()).Info("serving metrics")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	return nil
}

// Addr returns the address the server listens on
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
