package pool

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yinglunfeng/esa-httpclient/model"
)

type mode int

const (
	modeBootstrap mode = iota // protocol not yet known for this endpoint
	modeH1                    // N independent connections, Q-bounded wait queue
	modeH2                    // single shared connection
)

type result struct {
	conn Conn
	err  error
}

// bootWaiter carries its own context so a bootstrap-phase acquirer that
// turns out to need the H1 admission path (dial-or-queue) keeps its
// original cancellation, instead of inheriting a detached one.
type bootWaiter struct {
	ctx context.Context
	ch  chan result
}

// endpointPool is the resolution strategy for one endpoint described in
// spec.md §4.4: HTTP/2 shares a single connection across every acquire;
// HTTP/1.x hands out up to Options.MaxConns independent connections and
// queues the rest, up to Options.MaxWaitQueue, behind it. Which regime
// applies is learned from the first successful dial's negotiated
// protocol (ALPN, or the builder's configured version) and then fixed
// for the endpoint's lifetime, mirroring real server behavior.
type endpointPool struct {
	ep      model.Endpoint
	opts    Options
	dial    Dialer
	log     zerolog.Logger
	metrics *Metrics
	limiter *rate.Limiter

	mu       sync.Mutex
	mode     mode
	dialing  bool
	bootWait []bootWaiter
	waiters  []chan result

	h2Conn Conn

	h1Idle []Conn
	h1Open int
}

func newEndpointPool(ep model.Endpoint, opts Options, dial Dialer, log zerolog.Logger, metrics *Metrics) *endpointPool {
	var lim *rate.Limiter
	if opts.ConnectRate > 0 {
		lim = rate.NewLimiter(opts.ConnectRate, 1)
	}
	return &endpointPool{ep: ep, opts: opts, dial: dial, log: log.With().Str("endpoint", ep.String()).Logger(), metrics: metrics, limiter: lim}
}

func (e *endpointPool) acquire(ctx context.Context) (Conn, error) {
	e.mu.Lock()
	switch e.mode {
	case modeH2:
		if e.h2Conn != nil && e.h2Conn.Active() {
			c := e.h2Conn
			e.mu.Unlock()
			e.metrics.Acquires.WithLabelValues(e.ep.String()).Inc()
			return c, nil
		}
		e.mode = modeBootstrap
		e.h2Conn = nil
	case modeH1:
		c, err := e.acquireH1Locked(ctx)
		return c, err
	}

	// modeBootstrap: single-flight the first dial; later concurrent
	// acquires queue behind it until the protocol (and hence the regime)
	// is known.
	if e.dialing {
		ch := make(chan result, 1)
		e.bootWait = append(e.bootWait, bootWaiter{ctx: ctx, ch: ch})
		e.mu.Unlock()
		return e.wait(ctx, ch)
	}
	e.dialing = true
	e.mu.Unlock()
	return e.bootstrapDial(ctx)
}

func (e *endpointPool) wait(ctx context.Context, ch chan result) (Conn, error) {
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *endpointPool) rateLimit(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func (e *endpointPool) bootstrapDial(ctx context.Context) (Conn, error) {
	if err := e.rateLimit(ctx); err != nil {
		return nil, err
	}
	conn, err := e.dial(ctx, e.ep)

	e.mu.Lock()
	waiters := e.bootWait
	e.bootWait = nil
	e.dialing = false

	if err != nil {
		e.mu.Unlock()
		e.metrics.ConnFails.WithLabelValues(e.ep.String()).Inc()
		e.log.Warn().Err(err).Msg("bootstrap dial failed")
		failed := ErrConnectFailed{Endpoint: e.ep, Cause: err}
		for _, w := range waiters {
			w.ch <- result{err: failed}
		}
		return nil, failed
	}

	if conn.Protocol() == HTTP2 {
		e.mode = modeH2
		e.h2Conn = conn
		e.mu.Unlock()
		e.metrics.OpenConns.WithLabelValues(e.ep.String()).Set(1)
		e.metrics.Acquires.WithLabelValues(e.ep.String()).Add(float64(1 + len(waiters)))
		for _, w := range waiters {
			w.ch <- result{conn: conn}
		}
		return conn, nil
	}

	e.mode = modeH1
	e.h1Open = 1
	e.mu.Unlock()
	e.metrics.OpenConns.WithLabelValues(e.ep.String()).Set(1)
	e.metrics.Acquires.WithLabelValues(e.ep.String()).Inc()

	// This connection satisfies one acquirer (the caller, or the oldest
	// waiter if others queued up during the dial); every other waiter
	// re-enters the normal H1 admission path with its own context intact.
	if len(waiters) == 0 {
		return conn, nil
	}
	waiters[0].ch <- result{conn: conn}
	for _, w := range waiters[1:] {
		go func(w bootWaiter) {
			c, err := e.acquireH1(w.ctx)
			w.ch <- result{conn: c, err: err}
		}(w)
	}
	return e.acquireH1(ctx)
}

func (e *endpointPool) acquireH1(ctx context.Context) (Conn, error) {
	e.mu.Lock()
	return e.acquireH1Locked(ctx)
}

// acquireH1Locked consumes e.mu (always unlocked or lock-then-return on
// every path) and implements spec.md §4.4's HTTP/1 strategy: reuse an
// idle connection, else dial a new one up to MaxConns, else queue up to
// MaxWaitQueue, else ErrPoolExhausted.
func (e *endpointPool) acquireH1Locked(ctx context.Context) (Conn, error) {
	if n := len(e.h1Idle); n > 0 {
		c := e.h1Idle[n-1]
		e.h1Idle = e.h1Idle[:n-1]
		e.mu.Unlock()
		if c.Active() {
			e.metrics.Acquires.WithLabelValues(e.ep.String()).Inc()
			return c, nil
		}
		e.mu.Lock()
		e.h1Open--
		e.mu.Unlock()
		return e.acquireH1(ctx)
	}

	if e.opts.MaxConns <= 0 || e.h1Open < e.opts.MaxConns {
		e.h1Open++
		e.mu.Unlock()

		if err := e.rateLimit(ctx); err != nil {
			e.mu.Lock()
			e.h1Open--
			e.mu.Unlock()
			return nil, err
		}
		conn, err := e.dial(ctx, e.ep)
		if err != nil {
			e.mu.Lock()
			e.h1Open--
			e.mu.Unlock()
			e.metrics.ConnFails.WithLabelValues(e.ep.String()).Inc()
			return nil, ErrConnectFailed{Endpoint: e.ep, Cause: err}
		}
		e.metrics.OpenConns.WithLabelValues(e.ep.String()).Inc()
		e.metrics.Acquires.WithLabelValues(e.ep.String()).Inc()
		return conn, nil
	}

	if e.opts.MaxWaitQueue <= 0 || len(e.waiters) >= e.opts.MaxWaitQueue {
		e.mu.Unlock()
		e.metrics.Exhausted.WithLabelValues(e.ep.String()).Inc()
		return nil, ErrPoolExhausted{Endpoint: e.ep}
	}
	ch := make(chan result, 1)
	e.waiters = append(e.waiters, ch)
	e.mu.Unlock()
	e.metrics.Acquires.WithLabelValues(e.ep.String()).Inc()
	return e.wait(ctx, ch)
}

func (e *endpointPool) release(conn Conn) {
	e.mu.Lock()
	if e.mode == modeH2 {
		e.mu.Unlock()
		return
	}

	if len(e.waiters) > 0 {
		ch := e.waiters[0]
		e.waiters = e.waiters[1:]
		e.mu.Unlock()
		ch <- result{conn: conn}
		return
	}
	if conn.Active() {
		e.h1Idle = append(e.h1Idle, conn)
	} else {
		e.h1Open--
		e.metrics.OpenConns.WithLabelValues(e.ep.String()).Dec()
	}
	e.mu.Unlock()
}

func (e *endpointPool) closeAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.h2Conn != nil {
		e.h2Conn.Close()
		e.h2Conn = nil
	}
	for _, c := range e.h1Idle {
		c.Close()
	}
	e.h1Idle = nil
	e.h1Open = 0
	for _, w := range e.waiters {
		w <- result{err: ErrConnectFailed{Endpoint: e.ep}}
	}
	e.waiters = nil
}
