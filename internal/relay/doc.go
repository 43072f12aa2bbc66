// Package relay accepts local TCP connections and tunnels each one to a
// destination through a dialer.Dialer, typically a SOCKS5 proxy.
//
// A Server is given a Destination func that decides where each accepted
// connection goes: a fixed address for port forwards, or the original
// destination of transparently redirected traffic.
package relay
