package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/die-net/sockstun/internal/socks5"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New parses upstream and constructs the appropriate outbound Dialer.
//
// Supported schemes:
//   - direct://
//   - socks5://[user:pass@]host[:port]
//
// A missing socks5 port defaults to 1080. Credentials must carry both a
// username and a password.
func New(cfg Config, upstream string) (Dialer, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)

	if u.Path != "" && u.Path != "/" {
		return nil, errors.New("invalid url: path should be empty")
	}

	switch u.Scheme {
	case "":
		return nil, errors.New("invalid url: missing scheme")
	case "direct":
		return NewDirectDialer(cfg), nil
	case "socks5", "socks5h":
		host := u.Hostname()
		if host == "" {
			return nil, errors.New("invalid url: missing host")
		}
		port := u.Port()
		if port == "" {
			port = "1080"
		}

		var auth *socks5.Auth
		if u.User != nil {
			pass, ok := u.User.Password()
			if u.User.Username() == "" || !ok {
				return nil, errors.New("invalid url: socks5 credentials need both username and password")
			}
			auth = &socks5.Auth{Username: u.User.Username(), Password: pass}
		}

		return NewSOCKS5ProxyDialer(cfg, net.JoinHostPort(host, port), auth), nil
	default:
		return nil, fmt.Errorf("invalid url scheme: %q", u.Scheme)
	}
}
