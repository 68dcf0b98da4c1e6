package interceptor

import (
	"context"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// expectContinueInterceptor occupies the chain's fourth default slot
// (spec.md §6/§8: the default chain is [Retry, Redirect, Filtering,
// ExpectContinue]). The Expect:100-continue handshake itself is core
// behavior implemented against the connection in transceiver_h1.go/
// internal/writer (it needs the wire-level Continue response, which this
// request/response-only chain never sees) — this slot exists so
// unmodifiableInterceptors() reports the full chain the builder assembled.
// It passes the request through unchanged; the per-request expect-continue
// setup happens in the Transceiver, after every interceptor has run.
type expectContinueInterceptor struct{}

// NewExpectContinue builds the ExpectContinue interceptor.
func NewExpectContinue() Interceptor { return &expectContinueInterceptor{} }

func (e *expectContinueInterceptor) Name() string { return "ExpectContinue" }

func (e *expectContinueInterceptor) Intercept(ctx context.Context, req *model.Request, chain Chain) (*model.Response, error) {
	return chain.Proceed(ctx, req)
}
