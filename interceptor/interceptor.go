// Package interceptor implements the chain spec.md §6 describes as
// surrounding the core transceiver: Retry, Redirect, Filtering and
// ExpectContinue by default, with user interceptors appended after.
// Grounded on the teacher's layered conn/body composition (each layer
// wraps the next transport operation rather than reaching into shared
// state), adapted here from byte-stream layering to a request/response
// middleware chain.
package interceptor

import (
	"context"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// Doer executes one fully-built request synchronously to a terminal
// response or error. The root package supplies the terminal Doer by
// blocking on the core Transceiver's Future: Retry and Redirect need to
// inspect each attempt's outcome before deciding whether to issue
// another, which is naturally expressed as a synchronous call chain even
// though the core itself completes a Future asynchronously.
type Doer func(ctx context.Context, req *model.Request) (*model.Response, error)

// Chain continues execution to the next interceptor, or the terminal
// Doer once every interceptor has run.
type Chain interface {
	Proceed(ctx context.Context, req *model.Request) (*model.Response, error)
}

// Interceptor is one link in the chain (spec.md §6).
type Interceptor interface {
	Name() string
	Intercept(ctx context.Context, req *model.Request, chain Chain) (*model.Response, error)
}

type link struct {
	interceptors []Interceptor
	index        int
	terminal     Doer
}

func (l *link) Proceed(ctx context.Context, req *model.Request) (*model.Response, error) {
	if l.index >= len(l.interceptors) {
		return l.terminal(ctx, req)
	}
	next := &link{interceptors: l.interceptors, index: l.index + 1, terminal: l.terminal}
	return l.interceptors[l.index].Intercept(ctx, req, next)
}

// Execute runs req through interceptors in order, finally invoking
// terminal.
func Execute(ctx context.Context, req *model.Request, interceptors []Interceptor, terminal Doer) (*model.Response, error) {
	c := &link{interceptors: interceptors, terminal: terminal}
	return c.Proceed(ctx, req)
}
