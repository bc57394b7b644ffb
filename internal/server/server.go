// Package server implements the TCP accept loop (SPEC_FULL §4.8): one
// lightweight worker goroutine per accepted connection, delegating all
// per-connection work to a conndriver.Driver (spec §5 "Scheduling").
// Adapted from the teacher's Server/listen/handle shape, generalized so
// the per-connection body is the Connection Driver rather than a single
// one-shot request/response.
package server

import (
	"errors"
	"net"
	"sync/atomic"

	"originserver/internal/conndriver"
)

// Server owns a TCP listener and dispatches accepted connections to a
// Driver.
type Server struct {
	Addr     string
	listener net.Listener
	closed   atomic.Bool
	driver   *conndriver.Driver
}

// Serve binds addr and starts accepting connections in the background,
// handing each to driver.Serve in its own goroutine.
func Serve(addr string, driver *conndriver.Driver) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		Addr:     addr,
		listener: l,
		driver:   driver,
	}
	go s.listen()
	return s, nil
}

// Close stops accepting new connections. It does not force-close
// in-flight connection workers (SPEC_FULL §4.8 / spec §5 "Cancellation")
// — they exit naturally on their next read timeout or client close.
// Close is idempotent.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) listen() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			continue // transient accept error; keep going
		}
		go s.driver.Serve(conn)
	}
}
