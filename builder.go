// Builder assembles a Client from spec.md §6's verbatim option surface.
// Environment-var defaults are loaded the way the teacher's own
// deployment config does: godotenv.Load() populates the process
// environment from a .env file (if any) before any option is read from it,
// mirroring Sergey-Bar-Alfred/services/gateway/config/config.go's
// `_ = godotenv.Load()` followed by os.Getenv reads — a no-op when no .env
// file is present, so it never overrides an already-exported variable.
package httpclient

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yinglunfeng/esa-httpclient/filter"
	"github.com/yinglunfeng/esa-httpclient/interceptor"
	"github.com/yinglunfeng/esa-httpclient/internal/pipeline"
	"github.com/yinglunfeng/esa-httpclient/internal/pool"
	"github.com/yinglunfeng/esa-httpclient/internal/selector"
	"github.com/yinglunfeng/esa-httpclient/internal/timer"
)

const (
	envConnectionPoolSize              = "esa.httpclient.connectionPoolSize"
	envConnectionPoolWaitingQueueLength = "esa.httpclient.connectionPoolWaitingQueueLength"

	defaultConnectionPoolSize              = 64
	defaultConnectionPoolWaitingQueueLength = 1024
)

var dotEnvOnce sync.Once

func loadDotEnvOnce() {
	dotEnvOnce.Do(func() { _ = godotenv.Load() })
}

// Builder is the fluent entry point spec.md §6 describes: every option is
// a chained setter, Build() assembles a ready-to-use Client, and Copy()
// forks an independent Builder sharing only the resolver/provider
// singletons (spec.md §8 Builder-copy property).
type Builder struct {
	resolver           selector.Resolver
	h2ClearTextUpgrade bool
	connectTimeout     time.Duration
	readTimeout        time.Duration
	keepAlive          bool
	version            pipeline.Version

	connectionPoolSize               int
	connectionPoolWaitingQueueLength int
	channelPoolOptionsProvider       ChannelPoolOptionsProvider

	useDecompress bool
	decompression Decompression

	expectContinueEnabled bool
	uriEncodeEnabled      bool

	netOptions   *NetOptions
	http1Options *Http1Options
	http2Options *Http2Options
	retryOptions *RetryOptions
	sslOptions   *SSLOptions

	maxRedirects      int
	maxContentLength  int64

	filters *filter.FilteringExec

	log     zerolog.Logger
	metrics prometheus.Registerer
	wheel   *timer.Wheel
}

// NewBuilder returns a Builder seeded with spec.md §6's defaults,
// overridable by the esa.httpclient.connectionPool* environment variables
// (loaded from a .env file via godotenv, same as every other env-sourced
// default in this package).
func NewBuilder() *Builder {
	loadDotEnvOnce()
	return &Builder{
		version:                           pipeline.Auto,
		connectionPoolSize:                envInt(envConnectionPoolSize, defaultConnectionPoolSize),
		connectionPoolWaitingQueueLength:  envInt(envConnectionPoolWaitingQueueLength, defaultConnectionPoolWaitingQueueLength),
		expectContinueEnabled:             true,
		retryOptions:                      &RetryOptions{},
		maxRedirects:                      5,
		filters:                           filter.New(),
		log:                               zerolog.Nop(),
	}
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (b *Builder) Resolver(r selector.Resolver) *Builder { b.resolver = r; return b }

func (b *Builder) H2ClearTextUpgrade(enabled bool) *Builder { b.h2ClearTextUpgrade = enabled; return b }

func (b *Builder) ConnectTimeout(d time.Duration) *Builder { b.connectTimeout = d; return b }

func (b *Builder) ReadTimeout(d time.Duration) *Builder { b.readTimeout = d; return b }

func (b *Builder) KeepAlive(enabled bool) *Builder { b.keepAlive = enabled; return b }

func (b *Builder) Version(v pipeline.Version) *Builder { b.version = v; return b }

func (b *Builder) ConnectionPoolSize(n int) *Builder { b.connectionPoolSize = n; return b }

func (b *Builder) ConnectionPoolWaitingQueueLength(n int) *Builder {
	b.connectionPoolWaitingQueueLength = n
	return b
}

func (b *Builder) ChannelPoolOptionsProvider(p ChannelPoolOptionsProvider) *Builder {
	b.channelPoolOptionsProvider = p
	return b
}

func (b *Builder) UseDecompress(enabled bool) *Builder { b.useDecompress = enabled; return b }

func (b *Builder) DecompressionMode(d Decompression) *Builder { b.decompression = d; return b }

func (b *Builder) ExpectContinueEnabled(enabled bool) *Builder {
	b.expectContinueEnabled = enabled
	return b
}

func (b *Builder) URIEncodeEnabled(enabled bool) *Builder { b.uriEncodeEnabled = enabled; return b }

func (b *Builder) NetOptions(o *NetOptions) *Builder { b.netOptions = o; return b }

func (b *Builder) Http1Options(o *Http1Options) *Builder { b.http1Options = o; return b }

func (b *Builder) Http2Options(o *Http2Options) *Builder { b.http2Options = o; return b }

// RetryOptions sets the Retry interceptor's options. Passing nil removes
// the Retry interceptor entirely (spec.md §6/§8 Interceptor-count
// property: the default 4-entry chain shrinks to 3).
func (b *Builder) RetryOptions(o *RetryOptions) *Builder { b.retryOptions = o; return b }

func (b *Builder) MaxRedirects(n int) *Builder { b.maxRedirects = n; return b }

func (b *Builder) MaxContentLength(n int64) *Builder { b.maxContentLength = n; return b }

func (b *Builder) SSLOptions(o *SSLOptions) *Builder { b.sslOptions = o; return b }

func (b *Builder) Logger(log zerolog.Logger) *Builder { b.log = log; return b }

func (b *Builder) Metrics(reg prometheus.Registerer) *Builder { b.metrics = reg; return b }

func (b *Builder) Wheel(w *timer.Wheel) *Builder { b.wheel = w; return b }

// AddRequestFilter registers a request filter, replacing the Filtering
// interceptor slot's FilteringExec snapshot (spec.md §6: "Each filter
// mutation produces a new FilteringExec instance at its slot").
func (b *Builder) AddRequestFilter(f filter.RequestFilter) *Builder {
	b.filters = b.filters.WithRequestFilter(f)
	return b
}

// AddResponseFilter registers a response filter; see AddRequestFilter.
func (b *Builder) AddResponseFilter(f filter.ResponseFilter) *Builder {
	b.filters = b.filters.WithResponseFilter(f)
	return b
}

// Copy forks an independent Builder: scalars are copied by value,
// resolver/channelPoolOptionsProvider/metrics/log are shared by identity
// (cheap singletons with no per-request mutable state), and
// netOptions/http1Options/http2Options/retryOptions/sslOptions are deep
// copied so mutating the fork's pointers never affects the original
// (spec.md §8 Builder-copy property).
func (b *Builder) Copy() *Builder {
	c := *b
	c.netOptions = cloneNetOptions(b.netOptions)
	c.http1Options = cloneHttp1Options(b.http1Options)
	c.http2Options = cloneHttp2Options(b.http2Options)
	c.retryOptions = cloneRetryOptions(b.retryOptions)
	c.sslOptions = b.sslOptions.clone()
	return &c
}

// Build assembles the Transceiver (C8) and the interceptor chain around
// it into a ready-to-use Client.
func (b *Builder) Build() *Client {
	cfg := Config{
		Resolver:            b.resolver,
		PoolOptions:         pool.Options{MaxConns: b.connectionPoolSize, MaxWaitQueue: b.connectionPoolWaitingQueueLength},
		PoolOptionsProvider: b.channelPoolOptionsProvider,
		ConnectTimeout:      b.connectTimeout,
		ReadTimeout:         b.readTimeout,
		KeepAlive:           b.keepAlive,
		Version:             b.version,
		H2ClearTextUpgrade:  b.h2ClearTextUpgrade,
		TLSConfig:           b.sslOptions.toTLSConfig(),
	}
	if b.netOptions != nil {
		if b.netOptions.ConnectTimeout > 0 {
			cfg.ConnectTimeout = b.netOptions.ConnectTimeout
		}
		cfg.HandshakeTimeout = b.netOptions.HandshakeTimeout
		cfg.KeepAlive = b.netOptions.KeepAlive
	}
	if b.http1Options != nil {
		cfg.MaxResponseHeaderBytes = int(b.http1Options.MaxResponseHeaderBytes)
	}
	if b.http2Options != nil && b.http2Options.AllowHTTP {
		cfg.H2ClearTextUpgrade = true
	}

	wheel := b.wheel
	if wheel == nil {
		wheel = timer.NewFromEnv()
	}
	t := NewTransceiver(cfg, wheel, b.log, b.metrics)

	var retry interceptor.Interceptor
	if b.retryOptions != nil {
		retry = interceptor.NewRetry(*b.retryOptions, RetryEligible)
	}
	chain := interceptor.NewDefault(retry, interceptor.NewRedirect(b.maxRedirects), interceptor.NewFiltering(b.filters), interceptor.NewExpectContinue())

	return &Client{t: t, chain: chain, maxContentLength: b.maxContentLength, uriEncodeEnabled: b.uriEncodeEnabled}
}
