package dialer

import (
	"context"
	"fmt"
	"net"

	"github.com/die-net/sockstun/internal/conn"
)

type directDialer struct {
	cfg Config
}

func NewDirectDialer(cfg Config) Dialer {
	return &directDialer{cfg: cfg}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.cfg.DialTimeout}

	c, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	conn.ApplyKeepAlive(c, d.cfg.KeepAlive)

	return c, nil
}
