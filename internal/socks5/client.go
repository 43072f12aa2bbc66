package socks5

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	txsocks5 "github.com/txthinking/socks5"
	"golang.org/x/net/idna"
)

// DefaultTimeout bounds a whole handshake when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Stream is the duplex byte stream to the proxy. net.Conn satisfies it.
type Stream interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// Auth holds RFC 1929 credentials.
//
// Each field is sent with a one-byte length prefix, so values longer than
// 255 bytes are silently truncated to their first 255 bytes.
type Auth struct {
	Username string
	Password string
}

// Config configures a handshake.
type Config struct {
	// Auth enables username/password authentication when non-nil.
	Auth *Auth
	// Timeout bounds the whole handshake. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// aLongTimeAgo is a deadline in the past, used to unblock pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Handshake negotiates a CONNECT to target over s.
//
// The handshake is bounded by cfg's timeout; the deadline is cleared again
// before a successful return, after which s carries application data and
// belongs to the caller. On failure s is closed and the error is an *Error.
// Canceling ctx aborts the handshake with ErrCanceled.
func Handshake(ctx context.Context, s Stream, cfg Config, target Target) error {
	if err := s.SetDeadline(time.Now().Add(cfg.timeout())); err != nil {
		_ = s.Close()
		return &Error{Op: "negotiate", Kind: ErrTransport, Err: err}
	}

	h := &handshake{ctx: ctx, s: s, auth: cfg.Auth, log: zerolog.Ctx(ctx)}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		h.canceled.Store(true)
		_ = s.SetDeadline(aLongTimeAgo)
	})

	err := h.run(target)
	if !stop() {
		// The context fired while we were running; its deadline may have
		// landed after ours was cleared.
		<-interrupted
		if err == nil {
			err = &Error{Op: "connect", Kind: ErrCanceled, Err: context.Cause(ctx)}
		}
	}
	if err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

// handshake is the state of one Handshake call. Nothing in it is shared
// between calls.
type handshake struct {
	ctx      context.Context
	s        Stream
	auth     *Auth
	log      *zerolog.Logger
	canceled atomic.Bool

	// buf holds the largest single read: a 255-byte domain name.
	buf [maxStringLen]byte
}

func (h *handshake) run(target Target) error {
	if err := h.negotiate(); err != nil {
		return err
	}
	if err := h.connect(target); err != nil {
		return err
	}
	if err := h.s.SetDeadline(time.Time{}); err != nil {
		return h.ioError("connect", err)
	}
	return nil
}

func (h *handshake) negotiate() error {
	methods := []byte{byte(MethodNoAuth)}
	if h.auth != nil {
		methods = append(methods, byte(MethodUsernamePassword))
	}
	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(h.s); err != nil {
		return h.ioError("negotiate", err)
	}

	// VER METHOD
	b := h.buf[:2]
	if err := h.readFull("negotiate", b); err != nil {
		return err
	}

	method := Method(b[1])
	h.log.Debug().Stringer("method", method).Msg("socks5 method selected")

	switch {
	case method == MethodNoAuth:
		return nil
	case method == MethodUsernamePassword && h.auth != nil:
		return h.authenticate()
	default:
		return &Error{Op: "negotiate", Kind: ErrMethodNotAccepted, Code: b[1]}
	}
}

func (h *handshake) authenticate() error {
	user := truncate([]byte(h.auth.Username))
	pass := truncate([]byte(h.auth.Password))
	if _, err := txsocks5.NewUserPassNegotiationRequest(user, pass).WriteTo(h.s); err != nil {
		return h.ioError("auth", err)
	}

	// VER STATUS
	b := h.buf[:2]
	if err := h.readFull("auth", b); err != nil {
		return err
	}
	if b[1] != txsocks5.UserPassStatusSuccess {
		return &Error{Op: "auth", Kind: ErrAuthRejected, Code: b[1]}
	}
	return nil
}

func (h *handshake) connect(target Target) error {
	host := encodeHost(target.Host)
	port := binary.BigEndian.AppendUint16(nil, target.Port)
	req := txsocks5.NewRequest(txsocks5.CmdConnect, txsocks5.ATYPDomain, host, port)
	if _, err := req.WriteTo(h.s); err != nil {
		return h.ioError("connect", err)
	}

	// VER REP RSV ATYP
	hdr := h.buf[:4]
	if err := h.readFull("connect", hdr); err != nil {
		return err
	}
	rep, atyp := ReplyCode(hdr[1]), hdr[3]
	if err := rep.Err(); err != nil {
		return &Error{Op: "connect", Kind: err, Code: byte(rep)}
	}

	bound, err := h.readBoundAddr(atyp)
	if err != nil {
		return err
	}
	h.log.Debug().Stringer("target", target).Stringer("bound", bound).Msg("socks5 tunnel established")
	return nil
}

// readBoundAddr consumes BND.ADDR and BND.PORT so that the stream is left
// exactly at the start of application data.
func (h *handshake) readBoundAddr(atyp byte) (BoundAddr, error) {
	bound := BoundAddr{Type: atyp}

	switch atyp {
	case txsocks5.ATYPIPv4:
		b := h.buf[:net.IPv4len]
		if err := h.readFull("connect", b); err != nil {
			return bound, err
		}
		bound.Host = net.IP(b).String()
	case txsocks5.ATYPIPv6:
		b := h.buf[:net.IPv6len]
		if err := h.readFull("connect", b); err != nil {
			return bound, err
		}
		bound.Host = net.IP(b).String()
	case txsocks5.ATYPDomain:
		if err := h.readFull("connect", h.buf[:1]); err != nil {
			return bound, err
		}
		b := h.buf[:h.buf[0]]
		if err := h.readFull("connect", b); err != nil {
			return bound, err
		}
		bound.Host = string(b)
	default:
		h.log.Warn().Uint8("atyp", atyp).Msg("socks5 reply has unknown address type; bound address not consumed")
	}

	b := h.buf[:2]
	if err := h.readFull("connect", b); err != nil {
		return bound, err
	}
	bound.Port = binary.BigEndian.Uint16(b)
	return bound, nil
}

// readFull fills b or fails. Every read of the handshake goes through here,
// so a reply shorter than its framing is always ErrShortRead.
func (h *handshake) readFull(op string, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := io.ReadFull(h.s, b); err != nil {
		return h.ioError(op, err)
	}
	return nil
}

func (h *handshake) ioError(op string, err error) error {
	if h.canceled.Load() {
		return &Error{Op: op, Kind: ErrCanceled, Err: context.Cause(h.ctx)}
	}

	var ne net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &Error{Op: op, Kind: ErrShortRead, Err: err}
	default:
		return &Error{Op: op, Kind: ErrTransport, Err: err}
	}
}

// encodeHost returns the DST.ADDR bytes for host: ASCII (IDNA punycode for
// internationalized names) and at most 255 bytes long.
func encodeHost(host string) []byte {
	if !isASCII(host) {
		if ascii, err := idna.Punycode.ToASCII(host); err == nil {
			host = ascii
		}
	}
	return truncate([]byte(host))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
