// Package server exposes the dispatcher over the network: a raw TCP socket
// speaking the framed text protocol, and an HTTP endpoint speaking JSON with
// metrics, health and event streaming alongside.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpungsan/clipd/internal/dispatch"
	"github.com/hpungsan/clipd/internal/protocol"
)

const (
	rawReadTimeout  = 30 * time.Second
	rawWriteTimeout = 10 * time.Second
)

// Raw serves the framed text protocol. Each connection carries exactly one
// command: frame in, rendered text out, then the daemon closes.
type Raw struct {
	listener   net.Listener
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger

	connSeq atomic.Int64
	wg      sync.WaitGroup
	done    chan struct{}
	closed  atomic.Bool
}

// NewRaw starts listening on addr. Serving begins with Run.
func NewRaw(addr string, d *dispatch.Dispatcher, log *slog.Logger) (*Raw, error) {
	if log == nil {
		log = slog.Default()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Raw{
		listener:   listener,
		dispatcher: d,
		log:        log,
		done:       make(chan struct{}),
	}, nil
}

// Addr returns the listener's network address.
func (s *Raw) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until ctx is cancelled, then waits for in-flight
// connections to finish.
func (s *Raw) Run(ctx context.Context) error {
	s.log.Info("raw listener started", "addr", s.listener.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				s.wg.Wait()
				s.log.Info("raw listener stopped")
				return nil
			}
			s.log.Error("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

// Close stops accepting new connections.
func (s *Raw) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	if err := s.listener.Close(); err != nil {
		s.log.Error("listener close failed", "error", err)
	}
}

// handle services one connection: read a framed command line, run it, write
// the rendered reply, hang up. Input that does not parse earns the usage
// text instead of a dropped connection.
func (s *Raw) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	id := fmt.Sprintf("raw-%d", s.connSeq.Add(1))
	s.log.Debug("connection accepted", "conn", id, "remote", conn.RemoteAddr().String())

	_ = conn.SetReadDeadline(time.Now().Add(rawReadTimeout))
	line, err := protocol.ReadFrame(conn)
	if err != nil {
		s.log.Debug("frame read failed", "conn", id, "error", err)
		return
	}

	cmd, err := protocol.Parse(line)
	if err != nil {
		s.log.Debug("unparseable command", "conn", id, "error", err)
		cmd = protocol.NewBare(protocol.CmdHelp)
	}

	p, err := s.dispatcher.Submit(ctx, cmd)
	if err != nil {
		p = protocol.Messagef("error: %v", err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(rawWriteTimeout))
	if _, err := io.WriteString(conn, protocol.Render(p)+"\n"); err != nil {
		s.log.Debug("reply write failed", "conn", id, "error", err)
	}
}
