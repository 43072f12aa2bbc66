package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup and TCP connect to the proxy.
	DialTimeout time.Duration
	// HandshakeTimeout bounds the SOCKS5 negotiation. Zero uses
	// socks5.DefaultTimeout.
	HandshakeTimeout time.Duration
	KeepAlive        net.KeepAliveConfig
}
