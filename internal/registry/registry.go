// Package registry implements C2 from spec.md §4.2: a per-connection map
// from request-id to response handler. Grounded on the teacher's
// hdr.Header map-backed bookkeeping style and on franz-go's
// correlation-id keyed promise table (pkg/kgo/broker.go in the retrieval
// pack) for the id-assignment shape.
package registry

import "sync"

// Handler receives the terminal outcome for one request-id. Exactly one of
// Complete/Fail is ever called for a given put (invariant I3, spec.md §8
// "registry-balance").
type Handler interface {
	Complete(payload interface{})
	Fail(err error)
}

// Registry is safe for concurrent use, though spec.md §5 only ever touches
// it from the owning connection's worker goroutine.
type Registry struct {
	mu       sync.Mutex
	handlers map[uint32]Handler
	http2    bool
	nextID   uint32
}

// NewHTTP1 returns a registry that always assigns id 1 and holds at most
// one in-flight entry (spec.md §3).
func NewHTTP1() *Registry {
	return &Registry{handlers: make(map[uint32]Handler)}
}

// NewHTTP2 returns a registry assigning monotonically increasing odd
// stream ids, reusable after the stream completes and is removed.
func NewHTTP2() *Registry {
	return &Registry{handlers: make(map[uint32]Handler), http2: true, nextID: 1}
}

// Put assigns a fresh id and stores handler under it, returning the id to
// be written into the HTTP/2 stream-id extension header when applicable
// (spec.md §4.2).
func (r *Registry) Put(h Handler) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.http2 {
		r.handlers[1] = h
		return 1
	}

	id := r.nextID
	for {
		if _, taken := r.handlers[id]; !taken {
			break
		}
		id += 2
	}
	r.handlers[id] = h
	r.nextID = id + 2
	if r.nextID > 1<<31-1 {
		r.nextID = 1
	}
	return id
}

// Get returns the handler registered under id, if any.
func (r *Registry) Get(id uint32) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[id]
	return h, ok
}

// Remove deletes the entry for id. Must happen before the corresponding
// Future resolves (invariant I3).
func (r *Registry) Remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
}

// Clear completes every outstanding handler with cause and empties the
// table; called when a connection closes or a stream's read-timeout fires
// (spec.md §4.2).
func (r *Registry) Clear(cause error) {
	r.mu.Lock()
	handlers := r.handlers
	r.handlers = make(map[uint32]Handler)
	r.mu.Unlock()

	for _, h := range handlers {
		h.Fail(cause)
	}
}

// Len reports the number of in-flight entries, exposed for pool/registry
// metrics (SPEC_FULL.md AMBIENT STACK).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

// FailAndRemove implements the read-timeout task semantics of spec.md
// §4.3: if id is still present, remove it and fail its handler with err,
// returning true. A missing id (response already delivered) is a no-op
// that returns false, satisfying invariant I7.
func (r *Registry) FailAndRemove(id uint32, err error) bool {
	r.mu.Lock()
	h, ok := r.handlers[id]
	if ok {
		delete(r.handlers, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	h.Fail(err)
	return true
}
