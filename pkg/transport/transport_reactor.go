package transport

import (
	"time"
)

// reactor owns the connection pool, every change to it happens here
func (t *Transport) reactor() {
	defer close(t.done)
	ticker := time.NewTicker(t.settings.PollInterval)
	defer ticker.Stop()

	t.maintain()
	for {
		select {
		case <-t.quit:
			t.shutdown()
			return

		case msg := <-t.outbound:
			t.broadcast(msg)

		case conn := <-t.newSocket:
			go t.handleIncoming(conn)

		case p := <-t.accepted:
			t.register(p)

		case res := <-t.dialed:
			t.handleDial(res)

		case ev := <-t.events:
			t.handleEvent(ev)

		case <-t.changed:
			t.maintain()

		case <-ticker.C:
			t.maintain()
		}
	}
}

// maintain drops peers that left the working set and dials the ones we miss
func (t *Transport) maintain() {
	candidates := t.candidates()
	wanted := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		wanted[name] = true
	}

	for _, p := range t.pool.all() {
		if !wanted[p.name] {
			t.log.Infof("peer removed from cluster, disconnecting", "node", t.name, "peer", p.name, "addr", p.conn.RemoteAddr())
			t.pool.remove(p)
			p.close()
			t.metrics.ConnectedPeers(t.pool.count())
		}
	}
	for name := range t.nextAttempt {
		if !wanted[name] {
			delete(t.nextAttempt, name)
		}
	}

	now := time.Now()
	for _, name := range candidates {
		if t.pool.exists(name) || t.dialing[name] {
			continue
		}
		if now.Before(t.nextAttempt[name]) {
			continue
		}
		t.dialing[name] = true
		t.nextAttempt[name] = now.Add(t.jitter())
		t.log.Debugf("connecting to non-connected peer", "node", t.name, "peer", name)
		go t.dial(name)
	}
}

// register adds a connected peer to the pool and starts its io goroutines
func (t *Transport) register(p *peer) {
	if !t.isCandidate(p.name) {
		t.log.Debugf("connection for unknown peer, closing", "node", t.name, "peer", p.name, "addr", p.conn.RemoteAddr())
		p.close()
		return
	}

	if loser := t.pool.add(p); loser != nil {
		existing := t.pool.get(p.name)
		t.log.Debugf("duplicate connections", "node", t.name, "peer", p.name,
			"kept", existing.dialerAddr(), "keptdirection", existing.direction(),
			"disconnecting", loser.dialerAddr(), "disconnectingdirection", loser.direction())
		loser.close()
		if loser == p {
			return
		}
	}

	go p.ioReader(t.events, t.settings.MaxFrameSize)
	go p.ioWriter(t.events, t.settings.WriteTimeout, func() { t.metrics.FrameSent(p.name) })
	t.metrics.ConnectedPeers(t.pool.count())
	t.log.Infof("peer connected", "node", t.name, "peer", p.name, "direction", p.direction(), "addr", p.conn.RemoteAddr())
}

// handleEvent processes frames and errors of the peer goroutines
func (t *Transport) handleEvent(ev peerEvent) {
	p := ev.peer
	if !t.pool.current(p) {
		// superseded by a newer connection
		p.close()
		return
	}

	if ev.err != nil {
		t.log.Infof("peer disconnected", "node", t.name, "peer", p.name, "addr", p.conn.RemoteAddr(), "error", ev.err)
		t.pool.remove(p)
		p.close()
		t.metrics.ConnectedPeers(t.pool.count())
		return
	}

	t.metrics.FrameReceived(p.name)
	if h := t.getHandler(); h != nil {
		h(p.name, ev.frame)
	}
}

// broadcast queues msg for every connected peer
func (t *Transport) broadcast(msg []byte) {
	f := frame(msg)
	for _, p := range t.pool.all() {
		if !p.push(f) {
			t.log.Warnf("peer queue full, dropping message", "node", t.name, "peer", p.name, "pending", p.pending())
		}
	}
}

func (t *Transport) shutdown() {
	if err := t.server.Close(); err != nil {
		t.log.Debugf("closing listener failed", "node", t.name, "error", err)
	}
	t.pool.closeAll()
	t.metrics.ConnectedPeers(0)
}
