package transport

import (
	"context"
	"fmt"
	"net"
)

type dialResult struct {
	name string
	conn net.Conn
	err  error
}

// dial connects to a peer and hands the result to the reactor
func (t *Transport) dial(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.settings.ConnectTimeout)
	defer cancel()

	conn, err := t.dialPeer(ctx, name)
	select {
	case t.dialed <- dialResult{name: name, conn: conn, err: err}:
	case <-t.quit:
		if conn != nil {
			conn.Close()
		}
	}
}

// dialPeer tries every address of the peer until one connects
func (t *Transport) dialPeer(ctx context.Context, name string) (net.Conn, error) {
	ips, err := t.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}

	d := net.Dialer{Timeout: t.settings.ConnectTimeout}
	if t.bindIP != nil {
		// peers identify us by the address we connect from
		d.LocalAddr = &net.TCPAddr{IP: t.bindIP}
	}

	var lastErr error
	for _, ip := range ips {
		if t.bindIP != nil && (t.bindIP.To4() == nil) != (ip.To4() == nil) {
			continue
		}
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), t.port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable address for %s", name)
	}
	return nil, lastErr
}

func (t *Transport) handleDial(res dialResult) {
	delete(t.dialing, res.name)
	if res.err != nil {
		t.metrics.DialFailed(res.name)
		t.log.Debugf("connecting to peer failed", "node", t.name, "peer", res.name, "error", res.err, "retry", t.nextAttempt[res.name])
		return
	}
	t.register(newPeer(res.name, res.conn, true, t.settings.QueueSize))
}
