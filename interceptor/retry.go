package interceptor

import (
	"context"
	"time"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// RetryOptions configures the Retry interceptor (spec.md §6 retryOptions;
// a nil *RetryOptions passed to the builder removes the Retry slot
// entirely, shrinking the default chain from 4 entries to 3).
type RetryOptions struct {
	MaxRetries int
	Backoff    time.Duration
}

// Eligible reports whether err is worth retrying. Supplied by the root
// package so this package never needs to import the root error taxonomy
// and create an import cycle.
type Eligible func(err error) bool

type retryInterceptor struct {
	opts     RetryOptions
	eligible Eligible
}

// NewRetry builds the Retry interceptor.
func NewRetry(opts RetryOptions, eligible Eligible) Interceptor {
	return &retryInterceptor{opts: opts, eligible: eligible}
}

func (r *retryInterceptor) Name() string { return retryName }

func (r *retryInterceptor) Intercept(ctx context.Context, req *model.Request, chain Chain) (*model.Response, error) {
	attempts := r.opts.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := chain.Proceed(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if r.eligible == nil || !r.eligible(err) {
			return nil, err
		}
		if attempt < attempts-1 && r.opts.Backoff > 0 {
			select {
			case <-time.After(r.opts.Backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
