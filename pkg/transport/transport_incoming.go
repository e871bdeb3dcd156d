package transport

import (
	"context"
	"net"
)

// handleIncoming finds the peer an accepted connection belongs to
func (t *Transport) handleIncoming(conn net.Conn) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		conn.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.settings.ConnectTimeout)
	defer cancel()

	name := t.identify(ctx, net.ParseIP(host))
	if name == "" {
		t.log.Warnf("connection from unknown address, closing", "node", t.name, "addr", conn.RemoteAddr())
		t.metrics.ConnectionRejected()
		conn.Close()
		return
	}

	t.log.Debugf("new connection", "node", t.name, "peer", name, "addr", conn.RemoteAddr())
	p := newPeer(name, conn, false, t.settings.QueueSize)
	select {
	case t.accepted <- p:
	case <-t.quit:
		conn.Close()
	}
}

// identify returns the first peer of the working set resolving to ip
func (t *Transport) identify(ctx context.Context, ip net.IP) string {
	if ip == nil {
		return ""
	}
	for _, name := range t.candidates() {
		ips, err := t.resolver.Resolve(ctx, name)
		if err != nil {
			t.log.Debugf("resolving peer failed", "node", t.name, "peer", name, "error", err)
			continue
		}
		for _, candidate := range ips {
			if candidate.Equal(ip) {
				return name
			}
		}
	}
	return ""
}
