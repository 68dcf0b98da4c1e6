package httpclient

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yinglunfeng/esa-httpclient/header"
	"github.com/yinglunfeng/esa-httpclient/internal/handle"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/writer"
)

// runH1 drives the write-then-read half of one HTTP/1.0/1.1 exchange on a
// connection this goroutine owns exclusively (spec.md §4.4: one in-flight
// request per H1 connection). Expect:100-continue is handled by hand here,
// reading the interim response before committing to the body, since the
// socket is written to directly rather than through net/http's client
// transport (see runH2 for the HTTP/2 path's narrower story).
func (t *Transceiver) runH1(ctx context.Context, conn pool.Conn, raw net.Conn, req *Request, body writer.Body, hnd *handle.Handle, listener Listener, h *responseHandler) {
	// Blocking socket I/O below can't observe ctx directly; unblock it on
	// cancellation by forcing a deadline, same trick net/http's own
	// transport uses for its persistConn.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			raw.SetDeadline(timeInPast)
		case <-watchDone:
		}
	}()

	bw := bufio.NewWriter(raw)
	var br *bufio.Reader
	if t.cfg.MaxResponseHeaderBytes > 0 {
		br = bufio.NewReaderSize(raw, t.cfg.MaxResponseHeaderBytes)
	} else {
		br = bufio.NewReader(raw)
	}

	expectContinue := req.Overrides.ExpectContinueEnabled
	if expectContinue && !req.Header.Has(header.Expect) {
		req.Header.Set(header.Expect, "100-continue")
	}

	if err := writer.WriteHeaders(bw, req, body); err != nil {
		t.failWrite(ctx, conn, hnd, listener, h, err, false)
		return
	}

	if expectContinue {
		if err := bw.Flush(); err != nil {
			t.failWrite(ctx, conn, hnd, listener, h, err, false)
			return
		}
		interim, err := http.ReadResponse(br, &http.Request{Method: req.Method})
		if err != nil {
			t.failWrite(ctx, conn, hnd, listener, h, err, false)
			return
		}
		if interim.StatusCode != http.StatusContinue {
			// The server rejected the body outright; this is a complete,
			// valid exchange (e.g. 417 Expectation Failed), not a failure.
			hnd.WriteDone(listener.OnWriteDone)
			h.Complete(&Response{StatusCode: interim.StatusCode, Header: fromHTTPHeader(interim.Header), Body: interim.Body})
			return
		}
	}

	if err := writer.CopyBody(bw, body); err != nil {
		t.failWrite(ctx, conn, hnd, listener, h, err, true)
		return
	}
	if err := bw.Flush(); err != nil {
		t.failWrite(ctx, conn, hnd, listener, h, err, true)
		return
	}
	hnd.WriteDone(listener.OnWriteDone)

	timeout := req.Overrides.ReadTimeout
	if timeout <= 0 {
		timeout = t.cfg.ReadTimeout
	}
	if timeout > 0 {
		h.token = t.wheel.Schedule(func() { h.Fail(newErr(KindReadTimeout, nil)) }, timeout)
	}

	resp, err := http.ReadResponse(br, &http.Request{Method: req.Method})
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			h.Fail(newErr(KindCancelled, ctx.Err()))
		} else {
			h.Fail(newErr(KindConnectionInactive, err))
		}
		return
	}
	if strings.EqualFold(resp.Header.Get(header.Connection), "close") {
		conn.Close()
	}
	h.Complete(&Response{StatusCode: resp.StatusCode, Header: fromHTTPHeader(resp.Header), Body: resp.Body})
}

// timeInPast forces an immediate i/o timeout on a net.Conn deadline.
var timeInPast = time.Unix(0, 0)

// failWrite reports a write-phase failure (spec.md §7 WriteFailed),
// marking the connection dead first so the pool never recycles it; partial
// is the Partial flag retry uses to decide eligibility. A failure caused
// by the request's own context being cancelled is reported as Cancelled
// instead, since that's not an eligible-for-retry transport fault.
func (t *Transceiver) failWrite(ctx context.Context, conn pool.Conn, hnd *handle.Handle, listener Listener, h *responseHandler, err error, partial bool) {
	conn.Close()
	if ctx.Err() != nil {
		hnd.Error(func() { listener.OnError(ctx.Err()) })
		h.Fail(newErr(KindCancelled, ctx.Err()))
		return
	}
	hnd.Error(func() { listener.OnWriteFailed(err) })
	h.Fail(&ClientError{Kind: KindWriteFailed, Cause: err, Partial: partial})
}
