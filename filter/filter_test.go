package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinglunfeng/esa-httpclient/model"
)

func TestWithRequestFilterProducesNewInstance(t *testing.T) {
	e1 := New()
	e2 := e1.WithRequestFilter(RequestFilterFunc(func(context.Context, *model.Request) error { return nil }))

	assert.NotSame(t, e1, e2, "each mutation must produce a new FilteringExec instance")
	assert.Equal(t, 0, e1.RequestFilterCount(), "the original snapshot must be untouched")
	assert.Equal(t, 1, e2.RequestFilterCount())
}

func TestExecuteRequestRunsFiltersInOrderAndStopsOnError(t *testing.T) {
	var order []int
	boom := assert.AnError

	e := New().
		WithRequestFilter(RequestFilterFunc(func(context.Context, *model.Request) error {
			order = append(order, 1)
			return nil
		})).
		WithRequestFilter(RequestFilterFunc(func(context.Context, *model.Request) error {
			order = append(order, 2)
			return boom
		})).
		WithRequestFilter(RequestFilterFunc(func(context.Context, *model.Request) error {
			order = append(order, 3)
			return nil
		}))

	err := e.ExecuteRequest(context.Background(), &model.Request{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, order, "a filter after the failing one must not run")
}

func TestExecuteResponseRunsEveryFilter(t *testing.T) {
	calls := 0
	e := New().
		WithResponseFilter(ResponseFilterFunc(func(context.Context, *model.Response) error { calls++; return nil })).
		WithResponseFilter(ResponseFilterFunc(func(context.Context, *model.Response) error { calls++; return nil }))

	require.NoError(t, e.ExecuteResponse(context.Background(), &model.Response{}))
	assert.Equal(t, 2, calls)
}
