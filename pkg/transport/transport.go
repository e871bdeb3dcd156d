package transport

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/schubergphilis/clumon/pkg/logging"
)

// ChannelBufferSize is the number of outbound messages waiting for the reactor
var ChannelBufferSize = 100

// ErrStopped is returned when starting a transport that was stopped
var ErrStopped = errors.New("transport stopped")

// HandlerFunc receives every frame, from is the name of the sending peer
type HandlerFunc func(from string, frame []byte)

// Transport connects to all peers of the cluster and exchanges messages with them
type Transport struct {
	sync.RWMutex
	name     string
	addr     string // binding addr
	port     string
	bindIP   net.IP // source of outgoing connections, nil for any
	settings Settings
	resolver Resolver
	log      logging.SimpleLogger
	metrics  Metrics
	random   *rand.Rand

	peers   []string    // working set of peer names
	handler HandlerFunc // receives all frames

	pool      *connectionPool
	server    *server
	outbound  chan []byte
	newSocket chan net.Conn
	accepted  chan *peer
	dialed    chan dialResult
	events    chan peerEvent
	changed   chan struct{}

	// reactor state
	dialing     map[string]bool
	nextAttempt map[string]time.Time

	started  bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option changes a transport on creation
type Option func(*Transport)

// WithSettings overrides the default settings
func WithSettings(s Settings) Option {
	return func(t *Transport) {
		t.settings = s.withDefaults()
	}
}

// WithResolver sets how peer names are resolved
func WithResolver(r Resolver) Option {
	return func(t *Transport) {
		t.resolver = r
	}
}

// WithLogger sets the logger
func WithLogger(l logging.SimpleLogger) Option {
	return func(t *Transport) {
		t.log = l
	}
}

// WithMetrics sets the metrics receiver
func WithMetrics(m Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

// New creates a transport for node name listening on addr (host:port).
// Peers are dialed on the same port.
func New(name, addr string, opts ...Option) *Transport {
	t := &Transport{
		name:        name,
		addr:        addr,
		settings:    DefaultSettings(),
		resolver:    SystemResolver{},
		log:         logging.Discard{},
		metrics:     nopMetrics{},
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		pool:        newConnectionPool(),
		outbound:    make(chan []byte, ChannelBufferSize),
		newSocket:   make(chan net.Conn),
		accepted:    make(chan *peer),
		dialed:      make(chan dialResult),
		events:      make(chan peerEvent, ChannelBufferSize),
		changed:     make(chan struct{}, 1),
		dialing:     make(map[string]bool),
		nextAttempt: make(map[string]time.Time),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		t.port = port
		if ip := net.ParseIP(host); ip != nil && !ip.IsUnspecified() {
			t.bindIP = ip
		}
	}
	return t
}

// Name returns the name of our own node
func (t *Transport) Name() string {
	return t.name
}

// Handle registers the function receiving all frames
func (t *Transport) Handle(h HandlerFunc) {
	t.Lock()
	defer t.Unlock()
	t.handler = h
}

// Start listens on the cluster port and starts the reactor
func (t *Transport) Start() error {
	t.Lock()
	defer t.Unlock()
	select {
	case <-t.quit:
		return ErrStopped
	default:
	}
	if t.started {
		return nil
	}
	if t.port == "" {
		return fmt.Errorf("invalid listen address %q", t.addr)
	}

	s := newServer(t.addr)
	if _, err := s.Listen(); err != nil {
		return fmt.Errorf("listen on %s: %w", t.addr, err)
	}
	t.server = s
	t.started = true
	t.log.Infof("transport listening", "node", t.name, "addr", t.addr)

	go s.Serve(t.newSocket, t.quit)
	go t.reactor()
	return nil
}

// SetPeers replaces the set of peers we keep connections with
func (t *Transport) SetPeers(names []string) {
	seen := make(map[string]bool, len(names))
	peers := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		peers = append(peers, name)
	}

	t.Lock()
	t.peers = peers
	t.Unlock()
	t.log.Debugf("peer set updated", "node", t.name, "peers", peers)

	select {
	case t.changed <- struct{}{}:
	default:
	}
}

// Peers returns the working set of peers, sorted
func (t *Transport) Peers() []string {
	t.RLock()
	defer t.RUnlock()
	peers := append([]string(nil), t.peers...)
	sort.Strings(peers)
	return peers
}

// Connected returns the peers with a live connection, sorted
func (t *Transport) Connected() []string {
	return t.pool.names()
}

// Enqueue hands msg to the local handler and queues it for every connected peer
func (t *Transport) Enqueue(msg []byte) {
	if h := t.getHandler(); h != nil {
		h(t.name, msg)
	}

	select {
	case t.outbound <- msg:
	default:
		t.log.Warnf("outbound channel full, dropping message", "node", t.name, "size", len(msg))
	}
}

// Stop shuts down the reactor, the listener and all connections. It can be called more than once.
func (t *Transport) Stop() {
	t.stopOnce.Do(func() {
		t.Lock()
		started := t.started
		close(t.quit)
		t.Unlock()

		if !started {
			return
		}
		<-t.done
		t.log.Infof("transport stopped", "node", t.name, "addr", t.addr)
	})
}

func (t *Transport) getHandler() HandlerFunc {
	t.RLock()
	defer t.RUnlock()
	return t.handler
}

// candidates returns the working set without our own name
func (t *Transport) candidates() []string {
	t.RLock()
	defer t.RUnlock()
	peers := make([]string, 0, len(t.peers))
	for _, name := range t.peers {
		if name != t.name {
			peers = append(peers, name)
		}
	}
	return peers
}

func (t *Transport) isCandidate(name string) bool {
	if name == t.name {
		return false
	}
	t.RLock()
	defer t.RUnlock()
	for _, p := range t.peers {
		if p == name {
			return true
		}
	}
	return false
}

// jitter returns a random delay between dials of a peer
func (t *Transport) jitter() time.Duration {
	max := int64(t.settings.ReconnectJitter)
	if max <= 0 {
		return 0
	}
	return time.Duration(t.random.Int63n(max))
}
