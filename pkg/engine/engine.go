package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rdoorn/hashstructure"

	"github.com/schubergphilis/clumon/internal/models"
	"github.com/schubergphilis/clumon/pkg/logging"
	"github.com/schubergphilis/clumon/pkg/probe"
	"github.com/schubergphilis/clumon/pkg/transport"
)

// Transport is the part of the transport the engine uses
type Transport interface {
	Handle(h transport.HandlerFunc)
	SetPeers(names []string)
	Enqueue(msg []byte)
	Stop()
}

// cacheEntry is the last snapshot received from a peer
type cacheEntry struct {
	received time.Time
	frame    []byte
}

// Engine probes, publishes and reconciles cluster snapshots
type Engine struct {
	sync.RWMutex
	name      string
	prober    probe.Prober
	transport Transport
	settings  Settings
	log       logging.SimpleLogger
	metrics   Metrics
	now       func() time.Time

	cache        map[string]cacheEntry // last snapshot per peer name
	cluster      *models.Cluster       // merged view, nil when unknown
	clusterName  string                // name of our own cluster, once probed
	topologyHash uint64

	started   bool
	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// Option changes an engine on creation
type Option func(*Engine)

// WithSettings overrides the default settings
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s.withDefaults()
	}
}

// WithLogger sets the logger
func WithLogger(l logging.SimpleLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics sets the metrics receiver
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine for node name and registers it as the handler of transport
func New(name string, prober probe.Prober, t Transport, opts ...Option) *Engine {
	e := &Engine{
		name:      name,
		prober:    prober,
		transport: t,
		settings:  DefaultSettings(),
		log:       logging.Discard{},
		metrics:   nopMetrics{},
		now:       time.Now,
		cache:     make(map[string]cacheEntry),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	t.Handle(e.Deliver)
	return e
}

// Name returns the name of the local node
func (e *Engine) Name() string {
	return e.name
}

// SetProber replaces the prober, used after a configuration reload
func (e *Engine) SetProber(p probe.Prober) {
	e.Lock()
	defer e.Unlock()
	e.prober = p
}

// Deliver stores a snapshot received from a peer
func (e *Engine) Deliver(from string, frame []byte) {
	e.Lock()
	defer e.Unlock()
	e.cache[from] = cacheEntry{received: e.now(), frame: frame}
}

// Start runs a tick right away and then every TickInterval
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.Lock()
		e.started = true
		e.Unlock()
		go e.loop()
	})
}

// Stop ends the tick loop, then stops the transport. It can be called more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.quit)
		e.RLock()
		started := e.started
		e.RUnlock()
		if started {
			<-e.done
		}
		e.transport.Stop()
		e.log.Infof("engine stopped", "node", e.name)
	})
}

func (e *Engine) loop() {
	defer close(e.done)
	ticker := time.NewTicker(e.settings.TickInterval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), e.settings.TickInterval)
		e.Tick(ctx)
		cancel()

		select {
		case <-e.quit:
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one probe, publish, decay and merge cycle
func (e *Engine) Tick(ctx context.Context) {
	e.metrics.Tick()
	e.publish(ctx)

	entries := e.decay()
	cluster := e.reconcile(entries)

	e.Lock()
	e.cluster = cluster
	e.Unlock()

	if cluster != nil {
		e.metrics.ClusterVersion(cluster.Version)
	}
}

// publish probes the local node and broadcasts the snapshot
func (e *Engine) publish(ctx context.Context) {
	e.RLock()
	prober := e.prober
	e.RUnlock()

	status, err := prober.Probe(ctx)
	if err != nil {
		e.metrics.ProbeFailed()
		e.log.Warnf("probe failed, not publishing", "node", e.name, "error", err)
		return
	}

	e.updatePeers(status.Topology)

	msg, err := render(e.name, status).Serialize()
	if err != nil {
		e.log.Errorf("serializing snapshot failed", "node", e.name, "error", err)
		return
	}
	e.transport.Enqueue(msg)
}

// updatePeers hands the configured nodes to the transport when the topology changed
func (e *Engine) updatePeers(t probe.Topology) {
	hash, err := hashstructure.Hash(t, nil)
	if err != nil {
		e.log.Warnf("hashing topology failed", "node", e.name, "error", err)
		hash = 0
	}

	e.Lock()
	e.clusterName = t.ClusterName
	changed := hash == 0 || hash != e.topologyHash
	e.topologyHash = hash
	e.Unlock()

	if changed {
		e.log.Infof("cluster topology changed", "node", e.name, "cluster", t.ClusterName, "version", t.Version, "nodes", t.NodeNames())
		e.transport.SetPeers(t.NodeNames())
	}
}

// decay removes stale cache entries and returns the fresh ones
func (e *Engine) decay() map[string]cacheEntry {
	e.Lock()
	defer e.Unlock()
	now := e.now()
	fresh := make(map[string]cacheEntry, len(e.cache))
	for name, entry := range e.cache {
		if now.Sub(entry.received) >= e.settings.CacheTTL {
			e.log.Debugf("snapshot expired", "node", e.name, "peer", name, "age", now.Sub(entry.received))
			delete(e.cache, name)
			continue
		}
		fresh[name] = entry
	}
	e.metrics.CacheEntries(len(e.cache))
	return fresh
}

// Cluster returns a copy of the merged view, nil when unknown
func (e *Engine) Cluster() *models.Cluster {
	e.RLock()
	defer e.RUnlock()
	return e.cluster.Copy()
}

// Request answers a local query, GET returns the dump of the merged view
func (e *Engine) Request(command string) string {
	switch strings.ToUpper(strings.TrimSpace(command)) {
	case "GET":
		return e.Cluster().Dump()
	default:
		return ""
	}
}
