// Package tproxy implements a transparent proxy listener for Linux.
//
// The listener is opened with IP_TRANSPARENT so it can accept connections
// steered to it by iptables/nftables TPROXY or REDIRECT rules. The original
// destination is recovered with SO_ORIGINAL_DST (REDIRECT), falling back to
// the socket's local address (TPROXY preserves it). Destination adapts this
// to relay.Destination so redirected traffic can be tunneled through the
// SOCKS5 proxy.
//
// On other platforms the listener is stubbed out and IsSupported is false.
package tproxy
