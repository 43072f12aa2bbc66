package socks5

import (
	"fmt"
	"net"
	"strconv"

	txsocks5 "github.com/txthinking/socks5"
)

// Method is an authentication method selected during negotiation.
type Method byte

const (
	MethodNoAuth           Method = Method(txsocks5.MethodNone)
	MethodUsernamePassword Method = Method(txsocks5.MethodUsernamePassword)
	MethodNoAcceptable     Method = 0xff
)

func (m Method) String() string {
	switch m {
	case MethodNoAuth:
		return "no-auth"
	case MethodUsernamePassword:
		return "username/password"
	case MethodNoAcceptable:
		return "no-acceptable-methods"
	default:
		return fmt.Sprintf("method(0x%02x)", byte(m))
	}
}

// ReplyCode is the REP field of a CONNECT reply.
type ReplyCode byte

const (
	ReplySucceeded               ReplyCode = ReplyCode(txsocks5.RepSuccess)
	ReplyGeneralFailure          ReplyCode = ReplyCode(txsocks5.RepServerFailure)
	ReplyNotAllowedByRuleset     ReplyCode = ReplyCode(txsocks5.RepNotAllowed)
	ReplyNetworkUnreachable      ReplyCode = ReplyCode(txsocks5.RepNetworkUnreachable)
	ReplyHostUnreachable         ReplyCode = ReplyCode(txsocks5.RepHostUnreachable)
	ReplyConnectionRefused       ReplyCode = ReplyCode(txsocks5.RepConnectionRefused)
	ReplyTTLExpired              ReplyCode = ReplyCode(txsocks5.RepTTLExpired)
	ReplyCommandNotSupported     ReplyCode = ReplyCode(txsocks5.RepCommandNotSupported)
	ReplyAddressTypeNotSupported ReplyCode = ReplyCode(txsocks5.RepAddressNotSupported)
)

var replyErrors = map[ReplyCode]error{
	ReplyGeneralFailure:          ErrGeneralFailure,
	ReplyNotAllowedByRuleset:     ErrRulesetDenied,
	ReplyNetworkUnreachable:      ErrNetworkUnreachable,
	ReplyHostUnreachable:         ErrHostUnreachable,
	ReplyConnectionRefused:       ErrConnectionRefused,
	ReplyTTLExpired:              ErrTTLExpired,
	ReplyCommandNotSupported:     ErrCommandNotSupported,
	ReplyAddressTypeNotSupported: ErrAddressTypeNotSupported,
}

// Err returns the sentinel error for a reply code, or nil for
// ReplySucceeded. Codes outside the RFC 1928 table map to ErrUnknownReply.
func (c ReplyCode) Err() error {
	if c == ReplySucceeded {
		return nil
	}
	if err, ok := replyErrors[c]; ok {
		return err
	}
	return ErrUnknownReply
}

func (c ReplyCode) String() string {
	switch c {
	case ReplySucceeded:
		return "succeeded"
	case ReplyGeneralFailure:
		return "general failure"
	case ReplyNotAllowedByRuleset:
		return "connection not allowed by ruleset"
	case ReplyNetworkUnreachable:
		return "network unreachable"
	case ReplyHostUnreachable:
		return "host unreachable"
	case ReplyConnectionRefused:
		return "connection refused"
	case ReplyTTLExpired:
		return "TTL expired"
	case ReplyCommandNotSupported:
		return "command not supported"
	case ReplyAddressTypeNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unknown reply 0x%02x", byte(c))
	}
}

// maxStringLen is the largest value a one-byte length prefix can carry.
const maxStringLen = 255

// truncate caps b at the longest length a SOCKS length prefix can describe.
func truncate(b []byte) []byte {
	if len(b) > maxStringLen {
		return b[:maxStringLen]
	}
	return b
}

// Target is the destination the proxy is asked to connect to.
type Target struct {
	Host string
	Port uint16
}

// ParseTarget splits a "host:port" address into a Target.
func ParseTarget(address string) (Target, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return Target{}, fmt.Errorf("parse target %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Target{}, fmt.Errorf("parse target %q: invalid port: %w", address, err)
	}
	return Target{Host: host, Port: uint16(port)}, nil
}

func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// BoundAddr is the BND.ADDR/BND.PORT pair reported in a successful reply.
type BoundAddr struct {
	Type byte
	Host string
	Port uint16
}

func (a BoundAddr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}
