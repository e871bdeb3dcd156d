// Package query serves the merged cluster view to local programs over a unix
// socket. A client writes one command line and reads the response up to the
// first empty line.
package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/schubergphilis/clumon/internal/models"
	"github.com/schubergphilis/clumon/pkg/logging"
)

// DefaultSocket is where the daemon listens when nothing is configured
const DefaultSocket = "/var/run/clumond.sock"

// Settings of the query server
type Settings struct {
	MaxConnections int           // concurrent clients
	Rate           float64       // requests per second
	Burst          int           // requests allowed at once
	Timeout        time.Duration // per connection
}

// DefaultSettings returns the settings used when none are given
func DefaultSettings() Settings {
	return Settings{
		MaxConnections: 16,
		Rate:           20,
		Burst:          40,
		Timeout:        5 * time.Second,
	}
}

// Server answers queries on a unix socket
type Server struct {
	path     string
	view     models.ClusterView
	settings Settings
	limiter  *rate.Limiter
	log      logging.SimpleLogger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server answering from view on the socket at path
func NewServer(path string, view models.ClusterView, settings Settings, log logging.SimpleLogger) *Server {
	d := DefaultSettings()
	if settings.MaxConnections <= 0 {
		settings.MaxConnections = d.MaxConnections
	}
	if settings.Rate <= 0 {
		settings.Rate = d.Rate
	}
	if settings.Burst <= 0 {
		settings.Burst = d.Burst
	}
	if settings.Timeout <= 0 {
		settings.Timeout = d.Timeout
	}
	if log == nil {
		log = logging.Discard{}
	}
	return &Server{
		path:     path,
		view:     view,
		settings: settings,
		limiter:  rate.NewLimiter(rate.Limit(settings.Rate), settings.Burst),
		log:      log,
		quit:     make(chan struct{}),
	}
}

// Start listens on the socket, a stale socket file is replaced
func (s *Server) Start() error {
	if fi, err := os.Lstat(s.path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return fmt.Errorf("%s exists and is not a socket", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0660); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}

	s.listener = netutil.LimitListener(ln, s.settings.MaxConnections)
	s.log.Infof("query server listening", "socket", s.path, "maxconnections", s.settings.MaxConnections)

	s.wg.Add(1)
	go s.serve()
	return nil
}

// Stop closes the socket and waits for running requests
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.path)
	})
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warnf("accepting query connection failed", "socket", s.path, "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.settings.Timeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		s.log.Debugf("reading query failed", "socket", s.path, "error", err)
		return
	}
	command := strings.TrimSpace(line)

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.Timeout)
	defer cancel()
	response := ""
	if err := s.limiter.Wait(ctx); err != nil {
		s.log.Warnf("query rate limited", "socket", s.path, "command", command)
	} else {
		response = s.view.Request(command)
	}

	if response != "" && !strings.HasSuffix(response, "\n") {
		response += "\n"
	}
	if _, err := conn.Write([]byte(response + "\n")); err != nil {
		s.log.Debugf("writing query response failed", "socket", s.path, "error", err)
	}
}
