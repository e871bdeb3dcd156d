package transport

import (
	"sort"
	"sync"
)

// connectionPool holds the connected peers. Only the reactor changes it.
type connectionPool struct {
	sync.RWMutex
	peers map[string]*peer
}

func newConnectionPool() *connectionPool {
	return &connectionPool{
		peers: make(map[string]*peer),
	}
}

// add stores p unless a connection to the same peer exists. It returns the
// peer that lost and should be closed, which may be p itself.
func (c *connectionPool) add(p *peer) (loser *peer) {
	c.Lock()
	defer c.Unlock()
	old, ok := c.peers[p.name]
	if !ok {
		c.peers[p.name] = p
		return nil
	}

	// both ends keep the connection whose dialer address sorts higher
	if old.dialerAddr() >= p.dialerAddr() {
		return p
	}
	c.peers[p.name] = p
	return old
}

// remove deletes p, but only if it is still the registered connection of its peer
func (c *connectionPool) remove(p *peer) bool {
	c.Lock()
	defer c.Unlock()
	if cur, ok := c.peers[p.name]; ok && cur == p {
		delete(c.peers, p.name)
		return true
	}
	return false
}

func (c *connectionPool) get(name string) *peer {
	c.RLock()
	defer c.RUnlock()
	return c.peers[name]
}

func (c *connectionPool) exists(name string) bool {
	c.RLock()
	defer c.RUnlock()
	_, ok := c.peers[name]
	return ok
}

// current reports whether p is the registered connection of its peer
func (c *connectionPool) current(p *peer) bool {
	c.RLock()
	defer c.RUnlock()
	return c.peers[p.name] == p
}

func (c *connectionPool) all() []*peer {
	c.RLock()
	defer c.RUnlock()
	peers := make([]*peer, 0, len(c.peers))
	for _, p := range c.peers {
		peers = append(peers, p)
	}
	return peers
}

func (c *connectionPool) names() []string {
	c.RLock()
	defer c.RUnlock()
	names := make([]string, 0, len(c.peers))
	for name := range c.peers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *connectionPool) count() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.peers)
}

func (c *connectionPool) closeAll() {
	c.Lock()
	defer c.Unlock()
	for name, p := range c.peers {
		p.close()
		delete(c.peers, name)
	}
}
