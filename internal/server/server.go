package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/crossex/cross/internal/accounts"
	"github.com/crossex/cross/internal/logger"
	"github.com/crossex/cross/internal/service"
)

// Config carries the listener settings the TCP server needs
type Config struct {
	Port             int
	SocketTimeout    time.Duration
	MulticastAddress string
	MulticastPort    int
}

// Server is the client-facing TCP front end. Each connection gets its
// own goroutine running a line-framed JSON request/reply session; the
// shared Exchange handle serializes everything that touches the engine.
type Server struct {
	cfg      Config
	exchange *service.Exchange
	accounts accounts.Service

	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[*session]struct{}
	active   map[string]*session // username -> session holding the login
	closed   bool
}

// NewServer creates a TCP server; Serve starts accepting
func NewServer(cfg Config, exchange *service.Exchange, accountSvc accounts.Service) *Server {
	return &Server{
		cfg:      cfg,
		exchange: exchange,
		accounts: accountSvc,
		sessions: make(map[*session]struct{}),
		active:   make(map[string]*session),
	}
}

// Serve opens the listener and blocks accepting connections until Close
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to open TCP listener: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return errors.New("server already closed")
	}
	s.listener = listener
	s.mu.Unlock()

	logger.Info("TCP server listening", map[string]interface{}{
		"port": s.cfg.Port,
	})

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			logger.Warn("accept failed", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		sess := newSession(s, conn)
		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run()
		}()
	}
}

// Close stops accepting, closes every live session and waits for the
// handlers to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	open := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, sess := range open {
		sess.conn.Close()
	}
	s.wg.Wait()
	return err
}

// Addr returns the bound listener address, nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// bindUser claims the username for a session. Fails when another live
// session already holds the login.
func (s *Server) bindUser(user string, sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.active[user]; taken {
		return false
	}
	s.active[user] = sess
	return true
}

// releaseUser frees the login if this session holds it
func (s *Server) releaseUser(user string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[user] == sess {
		delete(s.active, user)
	}
}

// userLoggedIn reports whether any live session holds the login
func (s *Server) userLoggedIn(user string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[user]
	return ok
}

func (s *Server) dropSession(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}
