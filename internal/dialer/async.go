package dialer

import (
	"context"
	"net"
)

// PendingDial is the handle for a dial started with DialAsync.
type PendingDial struct {
	done chan struct{}
	conn net.Conn
	err  error
}

// DialAsync runs d.DialContext on a new goroutine and returns immediately.
//
// When the dial finishes, the handle's Done channel is closed and then, if
// callback is non-nil, callback is invoked on that goroutine with the
// result. A successful connection belongs to whoever consumes the result.
func DialAsync(ctx context.Context, d Dialer, network, address string, callback func(net.Conn, error)) *PendingDial {
	p := &PendingDial{done: make(chan struct{})}
	go func() {
		p.conn, p.err = d.DialContext(ctx, network, address)
		close(p.done)
		if callback != nil {
			callback(p.conn, p.err)
		}
	}()
	return p
}

// Done is closed once the dial has completed.
func (p *PendingDial) Done() <-chan struct{} {
	return p.done
}

// Completed reports whether the dial has finished, without blocking.
func (p *PendingDial) Completed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the dial completes and returns its result.
func (p *PendingDial) Wait() (net.Conn, error) {
	<-p.done
	return p.conn, p.err
}
