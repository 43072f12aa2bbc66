// Package socks5 implements the client side of the SOCKS5 handshake
// (RFC 1928) with optional username/password authentication (RFC 1929).
//
// [Handshake] drives method negotiation, the optional credential
// sub-negotiation and the CONNECT request over an already-open [Stream] to
// the proxy. On success the stream carries application data to the target;
// on failure it has been closed and the returned error is an [*Error]
// wrapping one of the package's sentinel errors.
//
// Request framing is encoded with the primitives in
// github.com/txthinking/socks5. Replies are parsed here so that a failed
// CONNECT is reported without draining the rest of the reply.
package socks5
