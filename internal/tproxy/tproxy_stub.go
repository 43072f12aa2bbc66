//go:build !linux

package tproxy

import (
	"errors"
	"net"
)

// IsSupported is true on TPROXY-supporting OSes.
const IsSupported = false

func ListenTransparentTCP(_ string, _ net.KeepAliveConfig) (net.Listener, error) {
	return nil, errors.New("transparent proxy is only supported on linux")
}

func OriginalDst(_ net.Conn) (*net.TCPAddr, bool) {
	return nil, false
}

func Destination(_ net.Conn) (string, error) {
	return "", errors.New("transparent proxy is only supported on linux")
}
