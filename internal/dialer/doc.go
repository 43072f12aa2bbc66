// Package dialer provides outbound dialing implementations used by sockstun.
//
// Dialers implement a small interface (DialContext) and are used by the relay
// to establish outbound connections either directly or through an upstream
// SOCKS5 proxy. The SOCKS5 dialer can also be driven asynchronously through
// DialAsync, which completes on its own goroutine and reports the result via
// a callback and a waitable handle.
package dialer
