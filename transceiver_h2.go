package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/net/http2"

	"github.com/yinglunfeng/esa-httpclient/header"
	"github.com/yinglunfeng/esa-httpclient/internal/handle"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/writer"
)

// runH2 issues one HTTP/2 stream on cc, a ClientConn shared across every
// request the pool hands out for this endpoint (spec.md §4.4/§4.7).
// golang.org/x/net/http2's bare ClientConn, unlike net/http's wrapping
// Transport, has no Expect:100-continue support of its own; an
// Expect:100-continue request is honored on the H1 path (runH1) but, on
// H2, the header is stripped and the body sent unconditionally rather
// than silently hanging waiting for an interim response this library
// never produces.
func (t *Transceiver) runH2(ctx context.Context, conn pool.Conn, cc *http2.ClientConn, req *Request, body writer.Body, hnd *handle.Handle, listener Listener, h *responseHandler) {
	req.Header.Del(header.Expect)

	// A request-scoped child of ctx gives the wheel-based read timeout (C3,
	// same mechanism runH1 uses) a way to actually unblock RoundTrip rather
	// than just flag a Future that's already blocked inside the library.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut int32
	timeout := req.Overrides.ReadTimeout
	if timeout <= 0 {
		timeout = t.cfg.ReadTimeout
	}
	if timeout > 0 {
		h.token = t.wheel.Schedule(func() {
			atomic.StoreInt32(&timedOut, 1)
			cancel()
		}, timeout)
	}

	httpReq := (&http.Request{
		Method:        req.Method,
		URL:           requestTarget(req),
		Header:        toHTTPHeader(req.Header),
		ContentLength: body.ContentLength,
	}).WithContext(streamCtx)

	writeDone := writeDoneReader{ReadCloser: body.Reader, once: &sync.Once{}, fire: func() { hnd.WriteDone(listener.OnWriteDone) }}
	if body.Reader == nil || body.ContentLength == 0 {
		writeDone.fire()
	} else {
		httpReq.Body = &writeDone
	}

	resp, err := cc.RoundTrip(httpReq)
	if err != nil {
		writeDone.fireOnce()
		conn.Close()
		switch {
		case atomic.LoadInt32(&timedOut) == 1:
			h.Fail(newErr(KindReadTimeout, nil))
		case ctx.Err() != nil:
			h.Fail(newErr(KindCancelled, ctx.Err()))
		default:
			h.Fail(newErr(KindWriteFailed, err))
		}
		return
	}
	writeDone.fireOnce()

	h.Complete(&Response{StatusCode: resp.StatusCode, Header: fromHTTPHeader(resp.Header), Body: resp.Body})
}

// writeDoneReader wraps the outgoing request body so the read-path that
// streams it onto the wire (internal to http2.ClientConn.RoundTrip) can
// signal write-done (I5: H2 releases the connection the moment the write
// completes, while the response keeps flowing independently) without this
// goroutine needing its own view into the transport's internals.
type writeDoneReader struct {
	io.ReadCloser
	once *sync.Once
	fire func()
}

func (r *writeDoneReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err == io.EOF {
		r.fireOnce()
	}
	return n, err
}

func (r *writeDoneReader) Close() error {
	r.fireOnce()
	if r.ReadCloser == nil {
		return nil
	}
	return r.ReadCloser.Close()
}

func (r *writeDoneReader) fireOnce() {
	r.once.Do(r.fire)
}
