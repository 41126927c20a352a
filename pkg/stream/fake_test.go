package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
)

var errFakeClosed = errors.New("use of closed connection")

type fakeConn struct {
	frames chan Frame

	mu      sync.Mutex
	written []Frame

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan Frame, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadFrame() (Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return Frame{}, io.EOF
		}

		return f, nil
	case <-c.closed:
		return Frame{}, errFakeClosed
	}
}

func (c *fakeConn) WriteFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.written = append(c.written, f)

	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sent() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Frame(nil), c.written...)
}

// fakeDialer hands out conns in order. With block set it waits for the dial context instead.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	urls  []string
	block bool
	err   error
}

func (d *fakeDialer) Dial(ctx context.Context, url string, _ http.Header) (Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	block, err := d.block, d.err

	var conn *fakeConn
	if len(d.conns) > 0 {
		conn, d.conns = d.conns[0], d.conns[1:]
	}
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.urls...)
}
