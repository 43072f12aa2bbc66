package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional copies between left and right until either direction
// ends or ctx is done, then closes both.
func CopyBidirectional(ctx context.Context, left, right net.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	pipe := func(dst, src net.Conn) func() error {
		return func() error {
			buf := getBuffer()
			defer putBuffer(buf)

			_, err := io.CopyBuffer(dst, src, *buf)
			closeBoth()
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
	}
	g.Go(pipe(left, right))
	g.Go(pipe(right, left))

	// If the context is canceled, ensure we close both sides to unblock Copy.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	return g.Wait()
}
