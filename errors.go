package httpclient

import "fmt"

// Kind enumerates the error taxonomy of spec.md §7. The core never wraps
// these further; it is retry's job (interceptor/retry.go) to decide which
// kinds are retry-eligible.
type Kind int

const (
	KindUnresolvedHost Kind = iota
	KindPoolExhausted
	KindConnectFailed
	KindHandshakeFailed
	KindConnectionInactive
	KindWriteBufferFull
	KindWriteFailed
	KindReadTimeout
	KindEncodingError
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindUnresolvedHost:
		return "UnresolvedHost"
	case KindPoolExhausted:
		return "PoolExhausted"
	case KindConnectFailed:
		return "ConnectFailed"
	case KindHandshakeFailed:
		return "HandshakeFailed"
	case KindConnectionInactive:
		return "ConnectionInactive"
	case KindWriteBufferFull:
		return "WriteBufferFull"
	case KindWriteFailed:
		return "WriteFailed"
	case KindReadTimeout:
		return "ReadTimeout"
	case KindEncodingError:
		return "EncodingError"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// RetryEligible reports whether the retry interceptor may resend a request
// that failed with this kind (spec.md §7's "retry-eligible" column).
// This is the kind's eligibility alone: the package-level RetryEligible
// additionally refuses a WriteFailed error whose ClientError.Partial is set
// (some body bytes were already sent).
func (k Kind) RetryEligible() bool {
	switch k {
	case KindPoolExhausted, KindConnectFailed, KindHandshakeFailed, KindConnectionInactive, KindWriteBufferFull, KindWriteFailed:
		return true
	default:
		return false
	}
}

// ClientError is the typed error surfaced to the response future and to
// Listener.OnError exactly once per request (invariant I1).
type ClientError struct {
	Kind    Kind
	Cause   error
	Partial bool // true if WriteFailed occurred after some body bytes were sent
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("esa-httpclient: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("esa-httpclient: %s", e.Kind)
}

func (e *ClientError) Unwrap() error { return e.Cause }

func newErr(kind Kind, cause error) *ClientError {
	return &ClientError{Kind: kind, Cause: cause}
}

// RetryEligible reports whether retry may resend the request that produced
// this error; non-ClientError values are never retried.
func RetryEligible(err error) bool {
	ce, ok := err.(*ClientError)
	if !ok {
		return false
	}
	if ce.Kind == KindWriteFailed && ce.Partial {
		return false
	}
	return ce.Kind.RetryEligible()
}
