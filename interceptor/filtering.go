package interceptor

import (
	"context"

	"github.com/yinglunfeng/esa-httpclient/filter"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// filteringInterceptor wraps one immutable filter.FilteringExec snapshot.
// Reconfiguring the builder's filters replaces this interceptor at the
// chain's Filtering slot (see List.ReplaceFiltering) rather than mutating
// a field here, so a request already mid-flight keeps running against the
// exec snapshot it started with, while new requests see the new one.
type filteringInterceptor struct {
	exec *filter.FilteringExec
}

// NewFiltering builds the Filtering interceptor around exec.
func NewFiltering(exec *filter.FilteringExec) Interceptor {
	if exec == nil {
		exec = filter.New()
	}
	return &filteringInterceptor{exec: exec}
}

func (f *filteringInterceptor) Name() string { return filteringName }

func (f *filteringInterceptor) Intercept(ctx context.Context, req *model.Request, chain Chain) (*model.Response, error) {
	if err := f.exec.ExecuteRequest(ctx, req); err != nil {
		return nil, err
	}
	resp, err := chain.Proceed(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := f.exec.ExecuteResponse(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
