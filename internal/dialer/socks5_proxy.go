package dialer

import (
	"context"
	"fmt"
	"net"

	"github.com/die-net/sockstun/internal/socks5"
)

// SOCKS5ProxyDialer dials outbound TCP connections through a SOCKS5 proxy.
//
// It holds the proxy configuration (address and optional credentials) and
// is immutable after construction, so one dialer may serve any number of
// concurrent dials. Each dial owns its own proxy connection.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      *socks5.Auth
	direct    Dialer
}

// NewSOCKS5ProxyDialer constructs a dialer for the proxy at proxyAddr.
//
// If auth is non-nil, username/password authentication is offered in
// addition to no-auth.
func NewSOCKS5ProxyDialer(cfg Config, proxyAddr string, auth *socks5.Auth) *SOCKS5ProxyDialer {
	d := &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		direct:    NewDirectDialer(cfg),
	}
	if auth != nil {
		a := *auth
		d.auth = &a
	}
	return d
}

// ProxyAddr returns the proxy host:port.
func (d *SOCKS5ProxyDialer) ProxyAddr() string {
	return d.proxyAddr
}

// DialContext connects to the proxy and asks it to CONNECT to address.
//
// The returned net.Conn is the proxy connection itself, positioned at the
// first byte of application data. On failure the proxy connection has been
// closed and the error wraps a *socks5.Error.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	target, err := socks5.ParseTarget(address)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial: %w", err)
	}

	c, err := d.direct.DialContext(ctx, "tcp", d.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", d.proxyAddr, &socks5.Error{Op: "dial", Kind: socks5.ErrTransportConnect, Err: err})
	}

	cfg := socks5.Config{Auth: d.auth, Timeout: d.cfg.HandshakeTimeout}
	if err := socks5.Handshake(ctx, c, cfg, target); err != nil {
		return nil, fmt.Errorf("proxy %s: %w", d.proxyAddr, err)
	}
	return c, nil
}
