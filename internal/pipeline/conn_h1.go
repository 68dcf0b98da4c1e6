package pipeline

import (
	"net"
	"sync/atomic"

	"github.com/yinglunfeng/esa-httpclient/internal/affinity"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/registry"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// h1Conn is an HTTP/1.0 or HTTP/1.1 pool.Conn: one net.Conn, one
// in-flight request at a time (the registry always assigns id 1).
type h1Conn struct {
	conn    net.Conn
	ep      model.Endpoint
	version Version
	reg     *registry.Registry
	worker  *affinity.Worker

	active int32 // atomic bool; 1 until Close or a fatal I/O error marks it dead
}

func (c *h1Conn) Protocol() pool.Protocol {
	if c.version == HTTP1_0 {
		return pool.HTTP10
	}
	return pool.HTTP11
}

func (c *h1Conn) HandshakeDone() <-chan struct{} {
	ch := make(chan struct{})
	close(ch) // TLS handshake, if any, already completed in Dial before this Conn exists
	return ch
}

func (c *h1Conn) HandshakeErr() error { return nil }

func (c *h1Conn) Active() bool   { return atomic.LoadInt32(&c.active) == 1 }
func (c *h1Conn) Writable() bool { return c.Active() }

func (c *h1Conn) Registry() *registry.Registry { return c.reg }
func (c *h1Conn) Endpoint() model.Endpoint     { return c.ep }
func (c *h1Conn) Worker() *affinity.Worker      { return c.worker }

// Raw exposes the underlying connection for internal/writer to stream the
// request bytes onto, and for the response reader to read from.
func (c *h1Conn) Raw() net.Conn { return c.conn }

// MarkDead flags the connection as unusable, for the transceiver to call
// after any I/O error so the pool never re-hands it to another request.
func (c *h1Conn) MarkDead() { atomic.StoreInt32(&c.active, 0) }

func (c *h1Conn) Close() error {
	atomic.StoreInt32(&c.active, 0)
	c.worker.Close()
	return c.conn.Close()
}
