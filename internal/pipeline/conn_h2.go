package pipeline

import (
	"net"

	"golang.org/x/net/http2"

	"github.com/yinglunfeng/esa-httpclient/internal/affinity"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/registry"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// h2Conn is an HTTP/2 pool.Conn: one *http2.ClientConn shared across every
// request the pool hands out for this endpoint, multiplexed by stream id
// (spec.md §4.4/§4.7). worker only ever carries registry/timer bookkeeping
// (see internal/affinity) — the concurrent RoundTrip calls that give this
// connection its multiplexing stay on each request's own goroutine.
type h2Conn struct {
	cc     *http2.ClientConn
	raw    net.Conn
	ep     model.Endpoint
	reg    *registry.Registry
	worker *affinity.Worker
}

func (c *h2Conn) Protocol() pool.Protocol { return pool.HTTP2 }

func (c *h2Conn) HandshakeDone() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (c *h2Conn) HandshakeErr() error { return nil }

func (c *h2Conn) Active() bool {
	state := c.cc.State()
	return !state.Closed && !state.Closing
}

func (c *h2Conn) Writable() bool { return c.cc.CanTakeNewRequest() }

func (c *h2Conn) Registry() *registry.Registry { return c.reg }
func (c *h2Conn) Endpoint() model.Endpoint     { return c.ep }
func (c *h2Conn) Worker() *affinity.Worker      { return c.worker }

// ClientConn exposes the underlying http2.ClientConn for internal/writer
// to issue RoundTrip-style stream writes on.
func (c *h2Conn) ClientConn() *http2.ClientConn { return c.cc }

func (c *h2Conn) Close() error {
	c.cc.Close()
	c.worker.Close()
	return c.raw.Close()
}
