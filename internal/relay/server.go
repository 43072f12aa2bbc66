package relay

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/die-net/sockstun/internal/dialer"
)

// Destination returns the address an accepted connection is tunneled to.
type Destination func(c net.Conn) (string, error)

// StaticDestination sends every connection to addr.
func StaticDestination(addr string) Destination {
	return func(net.Conn) (string, error) {
		return addr, nil
	}
}

type Server struct {
	ctx         context.Context
	dialer      dialer.Dialer
	destination Destination
	verbose     bool
}

// NewServer returns a relay that dials through d. The logger in ctx (see
// zerolog.Ctx) is used for per-connection logging; ctx ending tears down
// all relayed connections.
func NewServer(ctx context.Context, d dialer.Dialer, dest Destination, verbose bool) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Server{ctx: ctx, dialer: d, destination: dest, verbose: verbose}
}

// Serve accepts connections on ln until it fails, relaying each one on its
// own goroutine.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(c)
	}
}

func (s *Server) serveConn(c net.Conn) {
	l := zerolog.Ctx(s.ctx).With().
		Str("trace_id", uuid.NewString()).
		Stringer("client", c.RemoteAddr()).
		Logger()

	err := s.handle(l.WithContext(s.ctx), c)
	switch {
	case err == nil:
	case s.verbose:
		l.Warn().Err(err).Msg("relay: connection error")
	default:
		l.Debug().Err(err).Msg("relay: connection error")
	}
}

func (s *Server) handle(ctx context.Context, c net.Conn) error {
	defer c.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dst, err := s.destination(c)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	up, err := s.dialer.DialContext(ctx, "tcp", dst)
	if err != nil {
		return err
	}
	defer up.Close()

	log := zerolog.Ctx(ctx)
	log.Debug().Str("target", dst).Msg("relay: tunnel open")

	if err := CopyBidirectional(ctx, c, up); err != nil {
		return fmt.Errorf("relay %s: %w", dst, err)
	}

	log.Debug().Str("target", dst).Msg("relay: tunnel closed")
	return nil
}
