package transport

import (
	"net"
)

// server accepts the connections of the cluster port
type server struct {
	addr     string
	listener net.Listener
}

func newServer(addr string) *server {
	return &server{addr: addr}
}

// Listen creates the listener for the cluster port
func (s *server) Listen() (ln net.Listener, err error) {
	s.listener, err = net.Listen("tcp", s.addr)
	if err != nil {
		return
	}
	return s.listener, nil
}

// Serve accepts connections and forwards these to the reactor
func (s *server) Serve(newSocket chan<- net.Conn, quit <-chan struct{}) {
	defer s.listener.Close()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-quit:
				// quit was initiated outside of this function
				return
			default:
			}

			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				continue
			}
			return
		}

		select {
		case newSocket <- conn:
		case <-quit:
			conn.Close()
			return
		}
	}
}

// Close stops accepting connections
func (s *server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
