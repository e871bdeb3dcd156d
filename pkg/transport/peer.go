package transport

import (
	"errors"
	"net"
	"sync"
	"time"
)

// peer is one live connection to a cluster node
type peer struct {
	name     string
	conn     net.Conn
	outgoing bool // we dialed this connection
	joinTime time.Time

	mu      sync.Mutex
	queue   [][]byte // framed messages, oldest first
	offset  int      // bytes of queue[0] already written
	maxSize int

	wake      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

// peerEvent is sent by the peer goroutines to the reactor
type peerEvent struct {
	peer  *peer
	frame []byte
	err   error // set when the connection is gone
}

func newPeer(name string, conn net.Conn, outgoing bool, queueSize int) *peer {
	return &peer{
		name:     name,
		conn:     conn,
		outgoing: outgoing,
		joinTime: time.Now(),
		maxSize:  queueSize,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
}

// dialerAddr returns the address of the side that dialed the connection,
// which is the same string on both ends
func (p *peer) dialerAddr() string {
	if p.outgoing {
		return p.conn.LocalAddr().String()
	}
	return p.conn.RemoteAddr().String()
}

func (p *peer) direction() string {
	if p.outgoing {
		return "outgoing"
	}
	return "incoming"
}

// push queues an already framed message, it returns false when the queue is full
func (p *peer) push(msg []byte) bool {
	p.mu.Lock()
	if len(p.queue) >= p.maxSize {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, msg)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// pending returns the number of queued messages
func (p *peer) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// head returns the unwritten part of the oldest message
func (p *peer) head() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	return p.queue[0][p.offset:]
}

// advance records n written bytes of the oldest message and reports whether it was completed
func (p *peer) advance(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return false
	}
	p.offset += n
	if p.offset < len(p.queue[0]) {
		return false
	}
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.offset = 0
	return true
}

// ioReader reads from the connection until it fails, every complete frame is sent to events
func (p *peer) ioReader(events chan<- peerEvent, maxFrameSize int) {
	d := newDeframer(maxFrameSize)
	buf := make([]byte, 4096)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			frames, ferr := d.Write(buf[:n])
			for _, f := range frames {
				if !p.send(events, peerEvent{peer: p, frame: f}) {
					return
				}
			}
			if ferr != nil {
				p.send(events, peerEvent{peer: p, err: ferr})
				return
			}
		}
		if err != nil {
			p.send(events, peerEvent{peer: p, err: err})
			return
		}
	}
}

// ioWriter flushes the queue whenever it is woken up
func (p *peer) ioWriter(events chan<- peerEvent, writeTimeout time.Duration, sent func()) {
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
		}

		for {
			data := p.head()
			if data == nil {
				break
			}

			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			n, err := p.conn.Write(data)
			if p.advance(n) && sent != nil {
				sent()
			}
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					// keep the offset, try again unless we are closing
					select {
					case <-p.quit:
						return
					default:
					}
					continue
				}
				p.send(events, peerEvent{peer: p, err: err})
				return
			}
		}
	}
}

// send hands an event to the reactor unless the peer is closed
func (p *peer) send(events chan<- peerEvent, ev peerEvent) bool {
	select {
	case events <- ev:
		return true
	case <-p.quit:
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

func (p *peer) closed() bool {
	select {
	case <-p.quit:
		return true
	default:
		return false
	}
}
