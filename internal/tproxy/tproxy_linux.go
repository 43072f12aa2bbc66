//go:build linux

package tproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/die-net/sockstun/internal/conn"
)

// IsSupported is true on TPROXY-supporting OSes.
const IsSupported = true

// ListenTransparentTCP listens on addr with IP_TRANSPARENT enabled.
//
// This requires CAP_NET_ADMIN. Callers still need firewall rules that
// redirect traffic to the listener.
func ListenTransparentTCP(addr string, keepAliveConfig net.KeepAliveConfig) (net.Listener, error) {
	lc := net.ListenConfig{Control: func(network, _ string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			if network == "tcp6" {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_IPV6, unix.IPV6_TRANSPARENT, 1)
			} else {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_IP, unix.IP_TRANSPARENT, 1)
			}
		})
		if err != nil {
			return err
		}
		return ctrlErr
	}}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tproxy %s: %w", addr, err)
	}
	return &conn.KeepAliveListener{Listener: ln, KeepAliveConfig: keepAliveConfig}, nil
}

// OriginalDst returns the original destination for a TCP connection
// redirected to this listener.
func OriginalDst(c net.Conn) (*net.TCPAddr, bool) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return nil, false
	}
	local, ok := tc.LocalAddr().(*net.TCPAddr)
	if !ok {
		return nil, false
	}
	if local.IP.To4() == nil {
		return local, true
	}

	rc, err := tc.SyscallConn()
	if err != nil {
		return nil, false
	}

	var (
		mreq    *unix.IPv6Mreq
		sockErr error
	)
	if err := rc.Control(func(fd uintptr) {
		// SO_ORIGINAL_DST fills a sockaddr_in, which fits in the
		// 16-byte Multiaddr field.
		mreq, sockErr = unix.GetsockoptIPv6Mreq(int(fd), unix.SOL_IP, unix.SO_ORIGINAL_DST)
	}); err != nil || sockErr != nil {
		// Not NAT-redirected; under TPROXY the local address is the
		// original destination.
		return local, true
	}

	return sockaddrInet4(mreq.Multiaddr), true
}

// sockaddrInet4 decodes a raw struct sockaddr_in: family, port (network
// order), address.
func sockaddrInet4(raw [16]byte) *net.TCPAddr {
	return &net.TCPAddr{
		IP:   net.IPv4(raw[4], raw[5], raw[6], raw[7]),
		Port: int(raw[2])<<8 | int(raw[3]),
	}
}

// Destination is a relay.Destination resolving OriginalDst.
func Destination(c net.Conn) (string, error) {
	addr, ok := OriginalDst(c)
	if !ok {
		return "", errors.New("original destination unavailable")
	}
	return addr.String(), nil
}
