package testutil

import (
	"context"
	"errors"
	"io"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

var errAuthFailed = errors.New("fake proxy: bad credentials")

// ServeSOCKS5Connect plays a minimal SOCKS5 proxy on c: it negotiates
// no-auth (or username/password when user is non-empty), dials the
// requested destination directly and relays until either side closes.
func ServeSOCKS5Connect(ctx context.Context, c net.Conn, user, pass string) error {
	if _, err := txsocks5.NewNegotiationRequestFrom(c); err != nil {
		return err
	}

	if user == "" {
		if _, err := txsocks5.NewNegotiationReply(txsocks5.MethodNone).WriteTo(c); err != nil {
			return err
		}
	} else {
		if _, err := txsocks5.NewNegotiationReply(txsocks5.MethodUsernamePassword).WriteTo(c); err != nil {
			return err
		}

		urq, err := txsocks5.NewUserPassNegotiationRequestFrom(c)
		if err != nil {
			return err
		}
		if string(urq.Uname) != user || string(urq.Passwd) != pass {
			_, _ = txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusFailure).WriteTo(c)
			return errAuthFailed
		}
		if _, err := txsocks5.NewUserPassNegotiationReply(txsocks5.UserPassStatusSuccess).WriteTo(c); err != nil {
			return err
		}
	}

	req, err := txsocks5.NewRequestFrom(c)
	if err != nil {
		return err
	}
	if req.Cmd != txsocks5.CmdConnect {
		return WriteSOCKS5Reply(c, txsocks5.RepCommandNotSupported)
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", req.Address())
	if err != nil {
		return WriteSOCKS5Reply(c, txsocks5.RepHostUnreachable)
	}
	defer dst.Close()

	a, addr, port, err := txsocks5.ParseAddress(dst.LocalAddr().String())
	if err != nil {
		return err
	}
	if a == txsocks5.ATYPDomain {
		addr = addr[1:]
	}
	if _, err := txsocks5.NewReply(txsocks5.RepSuccess, a, addr, port).WriteTo(c); err != nil {
		return err
	}

	go func() {
		_, _ = io.Copy(dst, c)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)

	return nil
}

// WriteSOCKS5Reply writes a reply with rep and an all-zero IPv4 bound
// address.
func WriteSOCKS5Reply(c net.Conn, rep byte) error {
	_, err := txsocks5.NewReply(rep, txsocks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}).WriteTo(c)
	return err
}
