package httpclient

import (
	"sync"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// Response is delivered by a Future exactly once (invariant I1). Body is a
// live stream handed to the caller; decompression (gzip/deflate) and
// HTTP/2 frame reassembly happen upstream in the pipeline/transport layer,
// both explicit Non-goals of the core (spec.md §1). Defined in package
// model so internal packages can produce one without importing this
// package.
type Response = model.Response

// Future is a single-assignment promise for a Response, completed exactly
// once with either a Response or an error (spec.md §3, invariant I1/I2).
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	resp      *Response
	err       error
	cancelled bool
	onCancel  func()
}

// NewFuture returns an unresolved Future. onCancel, if non-nil, is invoked
// exactly once the first time Cancel succeeds (i.e. races with normal
// completion are a no-op, per spec.md §5).
func NewFuture(onCancel func()) *Future {
	return &Future{done: make(chan struct{}), onCancel: onCancel}
}

// Complete resolves the future successfully. A second call is a no-op.
func (f *Future) Complete(resp *Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isDoneLocked() {
		return
	}
	f.resp = resp
	f.closeOnce.Do(func() { close(f.done) })
}

// CompleteExceptionally resolves the future with an error. A second call
// is a no-op.
func (f *Future) CompleteExceptionally(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isDoneLocked() {
		return
	}
	f.err = err
	f.closeOnce.Do(func() { close(f.done) })
}

// Cancel marks the future cancelled, unless it already completed. Returns
// true iff this call was the one that cancelled it.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isDoneLocked() {
		return false
	}
	f.cancelled = true
	f.err = &ClientError{Kind: KindCancelled}
	f.closeOnce.Do(func() { close(f.done) })
	if f.onCancel != nil {
		go f.onCancel()
	}
	return true
}

func (f *Future) isDoneLocked() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the future resolves.
func (f *Future) Done() <-chan struct{} { return f.done }

// Get blocks until resolution and returns the result.
func (f *Future) Get() (*Response, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

// IsCancelled reports whether Cancel resolved this future.
func (f *Future) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}
