// Package faceserver is the request state machine (C4) and connection
// acceptor (C5): one accept loop, bounded by an optional admission
// semaphore, spawning one detached worker goroutine per connection.
package faceserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/danmuck/faceguard/internal/logging"
	"github.com/danmuck/faceguard/internal/stats"
	"github.com/danmuck/faceguard/internal/vision"
)

// Config is the server's immutable-after-boot configuration.
type Config struct {
	// MaxConnections is the admission cap; 0 means unlimited.
	MaxConnections uint32
	// MaxImageBytes is the per-payload size cap; callers must already have
	// promoted a 0 input to math.MaxUint32 before constructing Config.
	MaxImageBytes uint32
	// PrefixResponse is streamed verbatim in place of a proper response
	// whenever a connection's magic prefix is wrong.
	PrefixResponse []byte
}

// Server owns the listener, the shared detector, the shared counters, and
// the admission semaphore.
type Server struct {
	cfg      Config
	detector *vision.Detector
	stats    *stats.Stats
	sem      chan struct{}
	listener net.Listener
}

// New builds a Server. detector and st are shared singletons whose lifetime
// is the whole process; Server never closes them.
func New(cfg Config, detector *vision.Detector, st *stats.Stats) *Server {
	var sem chan struct{}
	if cfg.MaxConnections > 0 {
		sem = make(chan struct{}, cfg.MaxConnections)
	}
	return &Server{cfg: cfg, detector: detector, stats: st, sem: sem}
}

// Listen binds the listener. portArg is the raw CLI port argument: empty or
// "0" requests an ephemeral port from the kernel.
func (s *Server) Listen(portArg string) error {
	bind := portArg
	if bind == "" || bind == "0" {
		bind = "0"
	}
	l, err := net.Listen("tcp", net.JoinHostPort("", bind))
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Port returns the bound port, valid only after a successful Listen.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// AnnouncePort writes the bound port as a decimal followed by newline to w
// and flushes it, matching the exact bootstrap contract.
func (s *Server) AnnouncePort(w *os.File) error {
	if _, err := fmt.Fprintln(w, s.Port()); err != nil {
		return err
	}
	return w.Sync()
}

// Run accepts connections until ctx is cancelled, spawning one worker
// goroutine per accepted connection. It never returns a non-nil error on a
// clean shutdown triggered by ctx.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
		conn, err := s.listener.Accept()
		if err != nil {
			if s.sem != nil {
				<-s.sem
			}
			if ctx.Err() != nil {
				return nil
			}
			// Decided Open Question (see SPEC_FULL.md §4.5): a failed
			// accept is logged and the loop continues; no worker is
			// spawned and current_clients is left untouched.
			var ne net.Error
			if errors.As(err, &ne) {
				logging.Logger().Warn().Err(err).Msg("accept failed")
			}
			continue
		}
		s.stats.ClientConnected()
		go s.handleConn(conn)
	}
}

func (s *Server) release() {
	if s.sem != nil {
		<-s.sem
	}
}
