package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

// addrConn overrides the addresses of a pipe
type addrConn struct {
	net.Conn
	local, remote net.Addr
}

func (c addrConn) LocalAddr() net.Addr  { return c.local }
func (c addrConn) RemoteAddr() net.Addr { return c.remote }

func tcpAddr(s string) net.Addr {
	addr, _ := net.ResolveTCPAddr("tcp", s)
	return addr
}

func testPeer(name, local, remote string, outgoing bool) *peer {
	a, b := net.Pipe()
	b.Close()
	return newPeer(name, addrConn{Conn: a, local: tcpAddr(local), remote: tcpAddr(remote)}, outgoing, 4)
}

func TestConnectionPool(t *testing.T) {
	c := newConnectionPool()
	node1 := testPeer("node1", "127.0.0.1:9600", "127.0.0.2:40000", false)
	node2 := testPeer("node2", "127.0.0.1:9600", "127.0.0.3:40000", false)

	assert.False(t, c.exists("node1"))
	assert.Nil(t, c.add(node1))
	assert.True(t, c.exists("node1"))
	assert.Nil(t, c.add(node2))
	assert.Equal(t, []string{"node1", "node2"}, c.names())
	assert.Equal(t, 2, c.count())

	assert.True(t, c.current(node1))
	assert.True(t, c.remove(node1))
	assert.False(t, c.remove(node1))
	assert.False(t, c.exists("node1"))

	c.closeAll()
	assert.Equal(t, 0, c.count())
	assert.True(t, node2.closed())
}

func TestConnectionPoolDuplicates(t *testing.T) {
	// node2 dialed us from port 40001, we dialed node2 from port 40000
	incoming := testPeer("node2", "127.0.0.1:9600", "127.0.0.2:40001", false)
	outgoing := testPeer("node2", "127.0.0.1:40000", "127.0.0.2:9600", true)
	assert.Equal(t, "127.0.0.2:40001", incoming.dialerAddr())
	assert.Equal(t, "127.0.0.1:40000", outgoing.dialerAddr())

	// the higher dialer address wins regardless of arrival order
	c := newConnectionPool()
	assert.Nil(t, c.add(outgoing))
	assert.Same(t, outgoing, c.add(incoming))
	assert.Same(t, incoming, c.get("node2"))

	c = newConnectionPool()
	assert.Nil(t, c.add(incoming))
	assert.Same(t, outgoing, c.add(outgoing))
	assert.Same(t, incoming, c.get("node2"))

	// removing a loser leaves the winner in place
	assert.False(t, c.remove(outgoing))
	assert.True(t, c.current(incoming))
}
