// Package pool implements C4 from spec.md §4.4: a per-endpoint pool of
// transport connections with a bounded wait queue. Grounded on the
// teacher's idle-connection bookkeeping in src/http/tport/persist_conn.go
// and src/http/transport.go (idle list + per-conn affinity), and on
// jseow5177-tcp_pool's request-queue acquire pattern from the retrieval
// pack (internal/tcp/pool.go: a buffered channel of pending acquires
// served by a single goroutine per endpoint).
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yinglunfeng/esa-httpclient/internal/affinity"
	"github.com/yinglunfeng/esa-httpclient/internal/registry"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// Protocol is the negotiated wire protocol of a Conn (spec.md §3).
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	HTTP10
	HTTP11
	HTTP2
)

// Conn is a live transport channel (spec.md §3). Implementations are
// produced by a Dialer (normally one wrapping internal/pipeline.Dial).
type Conn interface {
	Protocol() Protocol
	HandshakeDone() <-chan struct{}
	HandshakeErr() error
	Active() bool
	Writable() bool
	Registry() *registry.Registry
	Close() error
	Endpoint() model.Endpoint

	// Worker returns the single goroutine bookkeeping for this connection
	// (registry mutations, timer-fired tasks) is funneled through, per
	// spec.md §5/§8's runInChannel requirement.
	Worker() *affinity.Worker
}

// Dialer creates a brand-new Conn for endpoint, installing the
// protocol-appropriate pipeline (C5). Errors are surfaced as ConnectFailed
// by the caller.
type Dialer func(ctx context.Context, endpoint model.Endpoint) (Conn, error)

// Options bounds one endpoint's pool (spec.md §3 "Pool entry").
type Options struct {
	MaxConns      int // N
	MaxWaitQueue  int // Q
	ConnectRate   rate.Limit // 0 disables rate limiting
}

// OptionsProvider may override pool size / wait-queue length per endpoint
// (spec.md §4.4, the `channelPoolOptionsProvider` builder option).
type OptionsProvider interface {
	OptionsFor(endpoint model.Endpoint) Options
}

// ErrPoolExhausted is returned when the wait queue for an endpoint is full
// (spec.md §7 PoolExhausted).
type ErrPoolExhausted struct{ Endpoint model.Endpoint }

func (e ErrPoolExhausted) Error() string {
	return fmt.Sprintf("pool: wait queue exhausted for %s", e.Endpoint)
}

// ErrConnectFailed wraps a Dialer failure (spec.md §7 ConnectFailed).
type ErrConnectFailed struct {
	Endpoint model.Endpoint
	Cause    error
}

func (e ErrConnectFailed) Error() string {
	return fmt.Sprintf("pool: connect to %s failed: %v", e.Endpoint, e.Cause)
}
func (e ErrConnectFailed) Unwrap() error { return e.Cause }

// Pool maintains one endpointPool per (scheme,host,port), as spec.md §3
// describes.
type Pool struct {
	dial        Dialer
	defaultOpts Options
	provider    OptionsProvider
	log         zerolog.Logger
	metrics     *Metrics

	mu        sync.Mutex
	endpoints map[model.Endpoint]*endpointPool
}

// New builds a Pool that dials with dial and applies defaultOpts unless
// provider overrides them for a given endpoint.
func New(dial Dialer, defaultOpts Options, provider OptionsProvider, log zerolog.Logger, reg prometheus.Registerer) *Pool {
	return &Pool{
		dial:        dial,
		defaultOpts: defaultOpts,
		provider:    provider,
		log:         log,
		metrics:     NewMetrics(reg),
		endpoints:   make(map[model.Endpoint]*endpointPool),
	}
}

func (p *Pool) optionsFor(ep model.Endpoint) Options {
	if p.provider != nil {
		if o := p.provider.OptionsFor(ep); o.MaxConns > 0 {
			return o
		}
	}
	return p.defaultOpts
}

func (p *Pool) endpointFor(ep model.Endpoint) *endpointPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.endpoints[ep]
	if !ok {
		opts := p.optionsFor(ep)
		e = newEndpointPool(ep, opts, p.dial, p.log, p.metrics)
		p.endpoints[ep] = e
	}
	return e
}

// Acquire resolves to a usable Conn for endpoint, per the resolution
// strategies in spec.md §4.4.
func (p *Pool) Acquire(ctx context.Context, ep model.Endpoint) (Conn, error) {
	return p.endpointFor(ep).acquire(ctx)
}

// Release returns conn to the pool (HTTP/1) or is an accounting-only
// no-op (HTTP/2) — spec.md §4.4.
func (p *Pool) Release(conn Conn) {
	p.endpointFor(conn.Endpoint()).release(conn)
}

// CloseIdle tears down every pool, used at shutdown.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		e.closeAll()
	}
}
