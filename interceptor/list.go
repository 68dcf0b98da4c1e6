package interceptor

import "sync"

// retryName and filteringName are the well-known slot names List.SetRetry
// and List.ReplaceFiltering look up by (spec.md §6: the chain always
// keeps Retry, Redirect, Filtering, ExpectContinue in that relative
// order; only Retry's presence and Filtering's identity ever change).
const (
	retryName     = "Retry"
	filteringName = "Filtering"
)

// List is the builder-owned interceptor chain (spec.md §6/§8). The zero
// value is an empty chain; NewDefault builds the standard chain a fresh
// Builder starts with.
type List struct {
	mu    sync.Mutex
	items []Interceptor
}

// NewDefault builds [Retry, Redirect, Filtering, ExpectContinue] — Retry
// is omitted, leaving a 3-entry chain, when retry is nil (spec.md §6:
// "retryOptions(null) disables the Retry interceptor entirely").
func NewDefault(retry Interceptor, redirect, filtering, expectContinue Interceptor) *List {
	l := &List{}
	if retry != nil {
		l.items = append(l.items, retry)
	}
	l.items = append(l.items, redirect, filtering, expectContinue)
	return l
}

// Append adds a user interceptor to the end of the chain.
func (l *List) Append(i Interceptor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, i)
}

// Unmodifiable returns a snapshot slice reflecting the chain's current
// state (spec.md §6's unmodifiableInterceptors(): callers can inspect the
// chain but never mutate it through the returned slice).
func (l *List) Unmodifiable() []Interceptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Interceptor, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the current chain length — 4 for a fresh default chain, 3
// once retryOptions(nil) has removed the Retry slot (spec.md §8
// Interceptor-count property).
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// ReplaceFiltering swaps the Filtering slot for a new Interceptor value.
// Called whenever the builder's FilteringExec snapshot changes, so the
// slot's identity changes along with it (spec.md §8 Interceptor-count
// property: "identity change on filter add").
func (l *List) ReplaceFiltering(next Interceptor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if it.Name() == filteringName {
			l.items[i] = next
			return
		}
	}
}

// SetRetry installs or removes the Retry slot. Passing nil removes it
// (shrinking a 4-entry chain to 3); passing a non-nil Interceptor either
// replaces the existing slot or, if none exists, reinstates it at the
// front — matching the default chain's ordering.
func (l *List) SetRetry(i Interceptor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for idx, it := range l.items {
		if it.Name() == retryName {
			if i == nil {
				l.items = append(l.items[:idx], l.items[idx+1:]...)
			} else {
				l.items[idx] = i
			}
			return
		}
	}
	if i != nil {
		l.items = append([]Interceptor{i}, l.items...)
	}
}
