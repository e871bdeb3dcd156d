package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schubergphilis/clumon/internal/config"
	"github.com/schubergphilis/clumon/internal/metrics"
	"github.com/schubergphilis/clumon/pkg/engine"
	"github.com/schubergphilis/clumon/pkg/logging"
	"github.com/schubergphilis/clumon/pkg/network"
	"github.com/schubergphilis/clumon/pkg/probe"
	"github.com/schubergphilis/clumon/pkg/query"
	"github.com/schubergphilis/clumon/pkg/transport"
)

// Name of the application
const Name = "clumond"

// detectTimeout bounds the lookup of our own node name at startup
const detectTimeout = 10 * time.Second

// Manager runs the cluster monitor: transport, engine, query socket and metrics
type Manager struct {
	sync.Mutex
	config *config.Config
	node   string
	log    *logrus.Entry

	component logging.SimpleLogger
	syncLog   func() error

	transport *transport.Transport
	engine    *engine.Engine
	query     *query.Server
	registry  *metrics.Registry
	metrics   *metrics.Server
	watcher   *config.Watcher
}

// NewManager creates a manager for a loaded config
func NewManager(c *config.Config) *Manager {
	return &Manager{
		config: c,
		log:    logging.For("core/manager"),
	}
}

// Node returns the name of the local node, known after Start
func (m *Manager) Node() string {
	return m.node
}

// Engine returns the reconciliation engine, nil before Start
func (m *Manager) Engine() *engine.Engine {
	return m.engine
}

// Start brings up all parts of the daemon. On error everything started so far is stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.Lock()
	defer m.Unlock()
	c := m.config

	if err := logging.Configure(c.Logging.Output, c.Logging.Level); err != nil {
		return err
	}
	m.log = logging.For("core/manager")

	component, syncLog, err := componentLogger(c)
	if err != nil {
		return err
	}
	m.component = component
	m.syncLog = syncLog

	resolver := newResolver(c)
	node := c.Cluster.NodeName
	if node == "" {
		dctx, cancel := context.WithTimeout(ctx, detectTimeout)
		node, err = network.DetectLocalName(dctx, c.Topology().NodeNames(), resolver)
		cancel()
		if err != nil {
			return fmt.Errorf("detect local node: %w", err)
		}
	}
	m.node = node
	m.log.WithField("node", node).WithField("cluster", c.Cluster.Name).Info("Starting cluster monitor")

	m.registry = metrics.NewRegistry()

	m.transport = transport.New(node, c.ListenAddr(),
		transport.WithSettings(c.TransportSettings()),
		transport.WithResolver(resolver),
		transport.WithLogger(&logging.Wrapper{Log: component, Prefix: []interface{}{"func", "transport"}, Level: logging.ParseLevel(c.Logging.Level)}),
		transport.WithMetrics(m.registry.Transport()),
	)
	if err := m.transport.Start(); err != nil {
		m.transport.Stop()
		return err
	}

	m.engine = engine.New(node, newProber(c, component), m.transport,
		engine.WithSettings(c.EngineSettings()),
		engine.WithLogger(&logging.Wrapper{Log: component, Prefix: []interface{}{"func", "engine"}, Level: logging.ParseLevel(c.Logging.Level)}),
		engine.WithMetrics(m.registry.Engine()),
	)
	m.engine.Start()

	m.query = query.NewServer(c.Query.Socket, m.engine, c.QuerySettings(),
		&logging.Wrapper{Log: component, Prefix: []interface{}{"func", "query"}, Level: logging.ParseLevel(c.Logging.Level)})
	if err := m.query.Start(); err != nil {
		m.engine.Stop()
		return err
	}

	if c.Metrics.Addr != "" {
		m.metrics = metrics.NewServer(c.Metrics.Addr, m.registry)
		if err := m.metrics.Start(); err != nil {
			m.query.Stop()
			m.engine.Stop()
			return err
		}
	}

	w, err := config.NewWatcher(c.File())
	if err != nil {
		m.log.WithError(err).Warn("Unable to watch config file, reload with SIGHUP only")
	} else {
		m.watcher = w
	}
	return nil
}

// Changed receives a value when the config file was written. It never fires when the file is not watched.
func (m *Manager) Changed() <-chan struct{} {
	m.Lock()
	defer m.Unlock()
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Changed()
}

// Reload reads the config file again and hands the new topology and probe to
// the engine. The engine announces it on its next tick. Logging is
// reconfigured, every other change is logged and needs a restart.
func (m *Manager) Reload() error {
	m.Lock()
	defer m.Unlock()
	if m.engine == nil {
		return fmt.Errorf("%s is not running", Name)
	}

	c, err := config.Load(m.config.File())
	if err != nil {
		m.log.WithError(err).Warn("Reload failed, keeping current config")
		return err
	}
	if err := logging.Configure(c.Logging.Output, c.Logging.Level); err != nil {
		m.log.WithError(err).Warn("Unable to reconfigure logging")
	}
	m.log = logging.For("core/manager")

	for _, section := range restartRequired(m.config, c, m.node) {
		m.log.WithField("section", section).Warn("Config change needs a restart to take effect")
	}

	m.engine.SetProber(newProber(c, m.component))
	m.config = c
	m.log.WithField("version", c.Cluster.Version).Info("Config reloaded")
	return nil
}

// Stop shuts down the query socket, the engine with its transport and the metrics server
func (m *Manager) Stop() {
	m.Lock()
	defer m.Unlock()
	m.log.Info("Stopping cluster monitor")

	if m.watcher != nil {
		m.watcher.Stop()
	}
	if m.query != nil {
		m.query.Stop()
	}
	if m.engine != nil {
		m.engine.Stop()
	}
	if m.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.metrics.Stop(ctx); err != nil {
			m.log.WithError(err).Warn("Metrics server did not stop cleanly")
		}
		cancel()
	}
	if m.syncLog != nil {
		m.syncLog()
	}
}

// restartRequired lists the parts of the config that differ between old and
// updated but are only read at startup
func restartRequired(old, updated *config.Config, node string) []string {
	var sections []string
	if old.ListenAddr() != updated.ListenAddr() {
		sections = append(sections, "cluster.bind/port")
	}
	if updated.Cluster.NodeName != "" && updated.Cluster.NodeName != node {
		sections = append(sections, "cluster.node_name")
	}
	if old.Logging.Format != updated.Logging.Format {
		sections = append(sections, "logging.format")
	}
	if old.Settings != updated.Settings {
		sections = append(sections, "settings")
	}
	if old.Resolver != updated.Resolver {
		sections = append(sections, "resolver")
	}
	if old.Query != updated.Query {
		sections = append(sections, "query")
	}
	if old.Metrics != updated.Metrics {
		sections = append(sections, "metrics")
	}
	return sections
}

// componentLogger returns the logger handed to the cluster components, json goes through zap
func componentLogger(c *config.Config) (logging.SimpleLogger, func() error, error) {
	if c.Logging.Format != "json" {
		return logging.NewLogrus("core/" + Name), nil, nil
	}
	var dst []string
	if c.Logging.Output != "" && c.Logging.Output != "syslog" {
		dst = []string{c.Logging.Output}
	}
	z, err := logging.NewZap(c.Logging.Level, dst...)
	if err != nil {
		return nil, nil, fmt.Errorf("json logger: %w", err)
	}
	return z, z.Sync, nil
}

func newResolver(c *config.Config) transport.Resolver {
	if c.Resolver.Server != "" {
		return transport.NewDNSResolver(c.Resolver.Server)
	}
	return transport.SystemResolver{}
}

func newProber(c *config.Config, log logging.SimpleLogger) probe.Prober {
	static := &probe.Static{Topology: c.Topology()}
	if c.Probe.Command == "" {
		return static
	}
	return &probe.Combined{
		Topology: static,
		Liveness: probe.NewCommand(c.Probe.Command, c.Probe.Args, c.Probe.Timeout.Duration),
		Log:      log,
	}
}
