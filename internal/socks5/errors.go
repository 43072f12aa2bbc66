package socks5

import (
	"errors"
	"fmt"
)

// Handshake failure kinds. Every error returned by Handshake wraps exactly
// one of these; test with errors.Is.
var (
	ErrTransportConnect = errors.New("unable to reach the proxy")
	ErrTransport        = errors.New("proxy connection failed")
	ErrTimeout          = errors.New("the proxy did not respond in a timely manner")
	ErrShortRead        = errors.New("unable to negotiate with the proxy")
	ErrCanceled         = errors.New("handshake canceled")

	ErrMethodNotAccepted = errors.New("proxy did not accept any offered authentication method")
	ErrAuthRejected      = errors.New("proxy authentication failed")

	ErrGeneralFailure          = errors.New("general failure")
	ErrRulesetDenied           = errors.New("connection not allowed by ruleset")
	ErrNetworkUnreachable      = errors.New("network unreachable")
	ErrHostUnreachable         = errors.New("host unreachable")
	ErrConnectionRefused       = errors.New("connection refused by destination host")
	ErrTTLExpired              = errors.New("TTL expired")
	ErrCommandNotSupported     = errors.New("command not supported / protocol error")
	ErrAddressTypeNotSupported = errors.New("address type not supported")
	ErrUnknownReply            = errors.New("unknown reply")
)

// Error describes a failed handshake step.
type Error struct {
	// Op is the step that failed, e.g. "negotiate", "auth", "connect".
	Op string
	// Kind is one of the package's sentinel errors.
	Kind error
	// Code is the raw byte from the proxy for ErrMethodNotAccepted,
	// ErrAuthRejected and reply errors. Zero otherwise.
	Code byte
	// Err is the underlying I/O error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := "socks5 " + e.Op + ": " + e.Kind.Error()
	if e.hasCode() {
		msg += fmt.Sprintf(" (code 0x%02x)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) hasCode() bool {
	switch e.Kind {
	case ErrMethodNotAccepted, ErrAuthRejected, ErrUnknownReply:
		return true
	}
	return false
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
