package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinglunfeng/esa-httpclient/model"
)

type recordingInterceptor struct {
	name  string
	order *[]string
}

func (r *recordingInterceptor) Name() string { return r.name }

func (r *recordingInterceptor) Intercept(ctx context.Context, req *model.Request, chain Chain) (*model.Response, error) {
	*r.order = append(*r.order, r.name)
	return chain.Proceed(ctx, req)
}

func TestExecuteRunsInterceptorsInOrderThenTerminal(t *testing.T) {
	var order []string
	chain := []Interceptor{
		&recordingInterceptor{name: "a", order: &order},
		&recordingInterceptor{name: "b", order: &order},
	}

	resp, err := Execute(context.Background(), &model.Request{}, chain, func(ctx context.Context, req *model.Request) (*model.Response, error) {
		order = append(order, "terminal")
		return &model.Response{StatusCode: 200}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"a", "b", "terminal"}, order)
}

func TestExecuteWithNoInterceptorsCallsTerminalDirectly(t *testing.T) {
	called := false
	_, err := Execute(context.Background(), &model.Request{}, nil, func(ctx context.Context, req *model.Request) (*model.Response, error) {
		called = true
		return &model.Response{}, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
