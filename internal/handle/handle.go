// Package handle implements C7 from spec.md §4.7: a small strategy object,
// one variant per protocol, that wraps the user Listener's connection-
// release timing. Grounded on the teacher's timeout_handler.go (a listener
// wrapper owning a single release decision).
//
// Kept deliberately generic (no Request/Response/Listener types) so it
// can be imported by both the root package and the pool/pipeline
// packages without an import cycle; the root package supplies the actual
// listener-forwarding closures.
package handle

import "sync"

// Variant selects release timing (spec.md §4.7, invariants I4/I5).
type Variant int

const (
	H1 Variant = iota
	H2
)

// Handle owns the single release decision for one request's connection.
// Exactly one of WriteDone/MessageCompleted/Error ever performs the
// release (invariant I2); later calls are no-ops.
type Handle struct {
	variant Variant
	release func()

	mu       sync.Mutex
	released bool
}

// New returns a Handle for variant that calls release (exactly once) when
// the protocol's release-triggering event occurs.
func New(variant Variant, release func()) *Handle {
	return &Handle{variant: variant, release: release}
}

func (h *Handle) releaseOnce() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	if h.release != nil {
		h.release()
	}
}

// WriteDone fires on successful write completion. HTTP/2 releases the
// connection here (I5: write-done releases while the response continues
// asynchronously via the registry); HTTP/1 does not (I4: only write-done-
// or-error on the *response* path releases). next, if non-nil, runs after
// any release, forwarding to the wrapped Listener.
func (h *Handle) WriteDone(next func()) {
	if h.variant == H2 {
		h.releaseOnce()
	}
	if next != nil {
		next()
	}
}

// MessageCompleted fires when the response finishes successfully. HTTP/1
// releases here (I4); HTTP/2's connection was already released at
// WriteDone, so this is a no-op release (accounting only, per §4.4).
func (h *Handle) MessageCompleted(next func()) {
	if h.variant == H1 {
		h.releaseOnce()
	}
	if next != nil {
		next()
	}
}

// Error fires on any terminal failure for either variant and always
// releases (both release paths in §4.7 are mutually exclusive by
// construction, so at most one of WriteDone/MessageCompleted/Error ever
// performs the actual release).
func (h *Handle) Error(next func()) {
	h.releaseOnce()
	if next != nil {
		next()
	}
}

// Released reports whether release has already fired, for tests.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
