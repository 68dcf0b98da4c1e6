// Package filter implements the request/response filter registry spec.md
// §6 describes as surrounding the core transceiver: user-installed hooks
// that run immediately before a request is written and immediately after
// a response is delivered. Grounded on the teacher's layered
// conn/body composition style (each layer wraps the next rather than
// mutating shared state in place), adapted here into an immutable
// snapshot type so that registering a new filter can never race a request
// already mid-flight against one.
package filter

import (
	"context"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// RequestFilter runs before a request is handed to the writer. Returning
// an error aborts the request before any I/O (spec.md §6).
type RequestFilter interface {
	Handle(ctx context.Context, req *model.Request) error
}

// ResponseFilter runs after a response is delivered, before the caller's
// Listener/Future observes it.
type ResponseFilter interface {
	Handle(ctx context.Context, resp *model.Response) error
}

// RequestFilterFunc adapts a plain function to RequestFilter.
type RequestFilterFunc func(ctx context.Context, req *model.Request) error

func (f RequestFilterFunc) Handle(ctx context.Context, req *model.Request) error { return f(ctx, req) }

// ResponseFilterFunc adapts a plain function to ResponseFilter.
type ResponseFilterFunc func(ctx context.Context, resp *model.Response) error

func (f ResponseFilterFunc) Handle(ctx context.Context, resp *model.Response) error {
	return f(ctx, resp)
}

// FilteringExec is an immutable ordered list of request and response
// filters executed around one request. Every With* method returns a new
// *FilteringExec rather than mutating the receiver, so the Filtering
// interceptor slot's identity changes on every registration (spec.md §6:
// "Each filter mutation produces a new FilteringExec instance at its
// slot") without the two sides ever observing a half-updated list.
type FilteringExec struct {
	request  []RequestFilter
	response []ResponseFilter
}

// New returns the empty FilteringExec a fresh Builder starts with.
func New() *FilteringExec {
	return &FilteringExec{}
}

// WithRequestFilter returns a new FilteringExec with f appended to the
// request-filter list.
func (e *FilteringExec) WithRequestFilter(f RequestFilter) *FilteringExec {
	return &FilteringExec{
		request:  append(append([]RequestFilter{}, e.request...), f),
		response: e.response,
	}
}

// WithResponseFilter returns a new FilteringExec with f appended to the
// response-filter list.
func (e *FilteringExec) WithResponseFilter(f ResponseFilter) *FilteringExec {
	return &FilteringExec{
		request:  e.request,
		response: append(append([]ResponseFilter{}, e.response...), f),
	}
}

// ExecuteRequest runs every registered RequestFilter in registration
// order, stopping at the first error.
func (e *FilteringExec) ExecuteRequest(ctx context.Context, req *model.Request) error {
	for _, f := range e.request {
		if err := f.Handle(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteResponse runs every registered ResponseFilter in registration
// order, stopping at the first error.
func (e *FilteringExec) ExecuteResponse(ctx context.Context, resp *model.Response) error {
	for _, f := range e.response {
		if err := f.Handle(ctx, resp); err != nil {
			return err
		}
	}
	return nil
}

// RequestFilterCount reports how many request filters are registered, for
// tests asserting on a FilteringExec snapshot.
func (e *FilteringExec) RequestFilterCount() int { return len(e.request) }

// ResponseFilterCount reports how many response filters are registered.
func (e *FilteringExec) ResponseFilterCount() int { return len(e.response) }
