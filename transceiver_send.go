package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"golang.org/x/net/http2"

	"github.com/yinglunfeng/esa-httpclient/header"
	"github.com/yinglunfeng/esa-httpclient/internal/handle"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/selector"
	"github.com/yinglunfeng/esa-httpclient/internal/writer"
)

// Send runs the per-request state machine of spec.md §4.8: Init ->
// AddressResolved -> PoolAcquired -> Connecting -> Handshaking -> Writing
// -> AwaitingResponse -> Done. listener and rc may be nil; sensible
// defaults are substituted. The returned Future resolves exactly once
// (invariant I1), on its own goroutine rather than a dedicated worker —
// Go's cheap goroutines are the idiomatic stand-in for the fixed-size
// event-loop-with-connection-affinity model the orchestration contract
// describes (see DESIGN.md's worker-affinity entry).
func (t *Transceiver) Send(ctx context.Context, req *Request, listener Listener, rc *Context) *Future {
	if listener == nil {
		listener = NopListener{}
	}
	if rc == nil {
		rc = NewContext()
	}
	rc.Set(KeyExpectContinueEnabled, req.Overrides.ExpectContinueEnabled)

	var slot handlerSlot
	future := NewFuture(func() {
		if h := slot.get(); h != nil {
			h.Fail(newErr(KindCancelled, nil))
		}
	})
	go t.run(ctx, req, listener, rc, future, &slot)
	return future
}

func (t *Transceiver) run(ctx context.Context, req *Request, listener Listener, rc *Context, future *Future, slot *handlerSlot) {
	listener.OnFiltersEnd() // step 1

	ep := req.Endpoint()

	// step 3: publish the chunk-writer promise before any I/O so a
	// streaming caller can start waiting on it immediately.
	var chunkFut *ChunkWriterFuture
	if req.Type == TypeChunked {
		chunkFut = NewChunkWriterFuture()
		rc.Set(KeyChunkWriter, chunkFut)
	}

	// step 4-5: acquire a connection (C1's resolution happens inside the
	// pool's Dialer; a resolver failure surfaces here as UnresolvedHost).
	listener.OnConnectionPoolAttempt(ep)
	conn, err := t.pool.Acquire(ctx, ep)
	if err != nil {
		listener.OnConnectionPoolFailed(err)
		t.fail(future, chunkFut, listener, mapAcquireError(err))
		return
	}
	listener.OnConnectionPoolAcquired()
	listener.OnConnectAttempt(ep)
	listener.OnConnectionAcquired()

	// step 6: await handshake.
	select {
	case <-conn.HandshakeDone():
	case <-ctx.Done():
		t.pool.Release(conn)
		t.fail(future, chunkFut, listener, newErr(KindConnectFailed, ctx.Err()))
		return
	}
	if conn.HandshakeErr() != nil {
		t.pool.Release(conn)
		t.fail(future, chunkFut, listener, newErr(KindHandshakeFailed, conn.HandshakeErr()))
		return
	}

	// step 7: re-validate.
	if !conn.Active() {
		conn.Close()
		t.pool.Release(conn)
		t.fail(future, chunkFut, listener, newErr(KindConnectionInactive, nil))
		return
	}
	if !conn.Writable() {
		t.pool.Release(conn)
		t.fail(future, chunkFut, listener, newErr(KindWriteBufferFull, nil))
		return
	}

	// step 8-9: protocol + TransceiverHandle.
	variant := handle.H1
	if conn.Protocol() == pool.HTTP2 {
		variant = handle.H2
	}
	hnd := handle.New(variant, func() { t.pool.Release(conn) })

	// step 10: keep-alive / Connection header.
	if variant == handle.H2 {
		req.Header.Del(header.Connection)
	} else if !req.Header.Has(header.Connection) {
		if t.cfg.KeepAlive {
			req.Header.Set(header.Connection, "keep-alive")
		} else {
			req.Header.Set(header.Connection, "close")
		}
	}

	// step 11: registry entry. Put runs on the connection's affinity
	// worker (spec.md §5: "registry mutations for that connection must
	// run on that worker"), the same worker every later Remove/timer-fire
	// for this request funnels through (see transceiver_handler.go).
	h := &responseHandler{reg: conn.Registry(), hnd: hnd, future: future, chunkFut: chunkFut, listener: listener, closeConn: conn.Close, worker: conn.Worker()}
	conn.Worker().Run(func() { h.id = conn.Registry().Put(h) })
	if variant == handle.H2 {
		req.Header.Set(header.StreamID, strconv.FormatUint(uint64(h.id), 10))
	}

	// A Cancel() that raced ahead of this point found the slot empty and
	// was a no-op; catch up on it now that the handler exists.
	slot.set(h)
	if future.IsCancelled() {
		h.Fail(newErr(KindCancelled, nil))
		return
	}

	// step 12-13: write, then await response.
	listener.OnWriteAttempt()
	body, err := writer.Prepare(req)
	if err != nil {
		h.Fail(newErr(KindEncodingError, err))
		return
	}
	if chunkFut != nil {
		chunkFut.Complete(body.Chunk, nil)
	}

	switch c := conn.(type) {
	case interface{ Raw() net.Conn }:
		t.runH1(ctx, conn, c.Raw(), req, body, hnd, listener, h)
	case interface {
		ClientConn() *http2.ClientConn
	}:
		t.runH2(ctx, conn, c.ClientConn(), req, body, hnd, listener, h)
	default:
		h.Fail(newErr(KindConnectFailed, fmt.Errorf("unrecognised connection type %T", conn)))
	}
}

func mapAcquireError(err error) *ClientError {
	var exhausted pool.ErrPoolExhausted
	if errors.As(err, &exhausted) {
		return newErr(KindPoolExhausted, err)
	}
	var connectFailed pool.ErrConnectFailed
	if errors.As(err, &connectFailed) {
		var unresolved selector.ErrUnresolvedHost
		if errors.As(connectFailed.Cause, &unresolved) {
			return newErr(KindUnresolvedHost, err)
		}
		return newErr(KindConnectFailed, err)
	}
	return newErr(KindConnectFailed, err)
}

func (t *Transceiver) fail(future *Future, chunkFut *ChunkWriterFuture, listener Listener, err *ClientError) {
	listener.OnError(err)
	future.CompleteExceptionally(err)
	if chunkFut != nil {
		chunkFut.Complete(nil, err)
	}
}

// requestTarget renders the *url.URL the HTTP/2 path's *http.Request
// needs, including an explicit port when it isn't the scheme's default
// (net/http only omits it for :80/:443, same as req.Host's Host header
// convention on the HTTP/1 path).
func requestTarget(req *Request) *url.URL {
	host := req.Host
	isDefaultPort := (req.Scheme == "http" && req.Port == 80) || (req.Scheme == "https" && req.Port == 443)
	if req.Port != 0 && !isDefaultPort {
		host = net.JoinHostPort(req.Host, strconv.Itoa(req.Port))
	}
	return &url.URL{Scheme: req.Scheme, Host: host, Path: req.Path, RawQuery: req.Query}
}
