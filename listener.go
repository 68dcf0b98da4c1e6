package httpclient

// Listener receives the per-request lifecycle callbacks named in spec.md
// §3/§4.8. Implementations must not block: callbacks run on the goroutine
// driving the request (or on the read-timeout task's goroutine), not on the
// connection's affinity worker, which carries only registry and timer
// bookkeeping.
type Listener interface {
	OnFiltersEnd()
	OnConnectionPoolAttempt(endpoint Endpoint)
	OnConnectionPoolAcquired()
	OnConnectionPoolFailed(err error)
	OnConnectAttempt(endpoint Endpoint)
	OnConnectionAcquired()
	OnWriteAttempt()
	OnWriteDone()
	OnWriteFailed(err error)
	OnError(err error)
	OnMessageReceived()
	OnCompleted(resp *Response)
}

// NopListener implements Listener with no-op callbacks, usable as an
// embeddable base for callers who only care about a subset.
type NopListener struct{}

func (NopListener) OnFiltersEnd()                          {}
func (NopListener) OnConnectionPoolAttempt(Endpoint)        {}
func (NopListener) OnConnectionPoolAcquired()               {}
func (NopListener) OnConnectionPoolFailed(error)            {}
func (NopListener) OnConnectAttempt(Endpoint)               {}
func (NopListener) OnConnectionAcquired()                   {}
func (NopListener) OnWriteAttempt()                         {}
func (NopListener) OnWriteDone()                            {}
func (NopListener) OnWriteFailed(error)                     {}
func (NopListener) OnError(error)                           {}
func (NopListener) OnMessageReceived()                      {}
func (NopListener) OnCompleted(*Response)                   {}
