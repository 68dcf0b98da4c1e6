package httpclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yinglunfeng/esa-httpclient/filter"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/model"
)

type fakeResolver struct{}

func (*fakeResolver) Resolve(ctx context.Context, host string, port int) (net.Addr, error) {
	return &net.TCPAddr{}, nil
}

type fakeProvider struct{}

func (*fakeProvider) OptionsFor(model.Endpoint) pool.Options { return pool.Options{MaxConns: 1} }

func TestBuilderCopySharesSingletonsByIdentity(t *testing.T) {
	resolver := &fakeResolver{}
	provider := &fakeProvider{}

	b := NewBuilder().Resolver(resolver).ChannelPoolOptionsProvider(provider)
	cp := b.Copy()

	assert.Same(t, b.resolver, cp.resolver, "resolver must be shared by identity")
	assert.Same(t, b.channelPoolOptionsProvider, cp.channelPoolOptionsProvider, "provider must be shared by identity")
}

func TestBuilderCopyDeepCopiesOptionStructs(t *testing.T) {
	b := NewBuilder().
		NetOptions(&NetOptions{ConnectTimeout: time.Second}).
		Http1Options(&Http1Options{MaxResponseHeaderBytes: 4096}).
		Http2Options(&Http2Options{AllowHTTP: true}).
		RetryOptions(&RetryOptions{MaxRetries: 2}).
		SSLOptions(&SSLOptions{ServerName: "example.com"})

	cp := b.Copy()

	require.NotNil(t, cp.netOptions)
	require.NotNil(t, cp.http1Options)
	require.NotNil(t, cp.http2Options)
	require.NotNil(t, cp.retryOptions)
	require.NotNil(t, cp.sslOptions)

	assert.NotSame(t, b.netOptions, cp.netOptions)
	assert.NotSame(t, b.http1Options, cp.http1Options)
	assert.NotSame(t, b.http2Options, cp.http2Options)
	assert.NotSame(t, b.retryOptions, cp.retryOptions)
	assert.NotSame(t, b.sslOptions, cp.sslOptions)

	assert.Equal(t, *b.netOptions, *cp.netOptions)
	assert.Equal(t, *b.http1Options, *cp.http1Options)
	assert.Equal(t, *b.http2Options, *cp.http2Options)
	assert.Equal(t, *b.retryOptions, *cp.retryOptions)
	assert.Equal(t, b.sslOptions.ServerName, cp.sslOptions.ServerName)

	cp.netOptions.ConnectTimeout = time.Minute
	assert.NotEqual(t, b.netOptions.ConnectTimeout, cp.netOptions.ConnectTimeout, "mutating the fork must not affect the original")
}

func TestBuilderCopyWithNilOptionStructsStaysNil(t *testing.T) {
	b := NewBuilder().RetryOptions(nil)
	cp := b.Copy()
	assert.Nil(t, cp.netOptions)
	assert.Nil(t, cp.http1Options)
	assert.Nil(t, cp.http2Options)
	assert.Nil(t, cp.retryOptions)
	assert.Nil(t, cp.sslOptions)
}

func TestBuildAssemblesClientWithDefaultInterceptorChain(t *testing.T) {
	c := NewBuilder().Resolver(&fakeResolver{}).Build()
	require.NotNil(t, c)

	names := make([]string, 0, 4)
	for _, i := range c.Interceptors() {
		names = append(names, i.Name())
	}
	assert.Equal(t, []string{"Retry", "Redirect", "Filtering", "ExpectContinue"}, names, "a fresh Builder carries default retryOptions, so Retry is present")
}

func TestBuildWithRetryOptionsYieldsFourEntryChain(t *testing.T) {
	c := NewBuilder().Resolver(&fakeResolver{}).RetryOptions(&RetryOptions{MaxRetries: 1}).Build()
	assert.Equal(t, 4, len(c.Interceptors()))
}

func TestAddRequestFilterChangesFilteringSlotIdentity(t *testing.T) {
	b := NewBuilder().Resolver(&fakeResolver{})
	before := b.Build().Interceptors()

	b.AddRequestFilter(filter.RequestFilterFunc(func(context.Context, *model.Request) error { return nil }))
	after := b.Build().Interceptors()

	var beforeFiltering, afterFiltering interface{ Name() string }
	for _, i := range before {
		if i.Name() == "Filtering" {
			beforeFiltering = i
		}
	}
	for _, i := range after {
		if i.Name() == "Filtering" {
			afterFiltering = i
		}
	}
	assert.NotSame(t, beforeFiltering, afterFiltering)
}
