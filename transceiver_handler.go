package httpclient

import (
	"errors"
	"sync"

	"github.com/yinglunfeng/esa-httpclient/internal/affinity"
	"github.com/yinglunfeng/esa-httpclient/internal/handle"
	"github.com/yinglunfeng/esa-httpclient/internal/registry"
	"github.com/yinglunfeng/esa-httpclient/internal/timer"
)

// responseHandler bridges C2's registry.Handler to the public Future and
// Listener, owning the exactly-once completion required by invariant I1
// and the registry-removal-before-resolve ordering required by invariant
// I3. It is also the target of C3's read-timeout task (registry.Handler.
// Fail) and, indirectly through handle.Handle, of C7's release timing.
type responseHandler struct {
	once sync.Once

	reg    *registry.Registry
	id     uint32
	worker *affinity.Worker

	token *timer.Token
	hnd   *handle.Handle

	future    *Future
	chunkFut  *ChunkWriterFuture
	listener  Listener
	closeConn func() error // invoked before release when the failure is a cancellation
}

// runOnWorker funnels registry/timer bookkeeping through the owning
// connection's affinity worker (spec.md §5/§8 runInChannel), falling back
// to running inline when no worker is set (e.g. unit tests that construct
// a responseHandler directly).
func (h *responseHandler) runOnWorker(task func()) {
	if h.worker == nil {
		task()
		return
	}
	h.worker.Run(task)
}

func (h *responseHandler) Complete(payload interface{}) {
	h.once.Do(func() {
		h.runOnWorker(func() {
			h.reg.Remove(h.id)
			if h.token != nil {
				h.token.Cancel()
			}
		})
		resp, _ := payload.(*Response)
		h.hnd.MessageCompleted(func() {
			h.listener.OnMessageReceived()
			h.listener.OnCompleted(resp)
		})
		h.future.Complete(resp)
	})
}

// handlerSlot lets a Future's onCancel reach a responseHandler that may
// not exist yet when the Future is constructed (the handler is only
// built once a connection and registry id are available, while Cancel
// may race arbitrarily early). set is called at most once, from the
// single goroutine running Transceiver.run; get is safe to call from any
// goroutine, any number of times.
type handlerSlot struct {
	mu sync.Mutex
	h  *responseHandler
}

func (s *handlerSlot) set(h *responseHandler) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *handlerSlot) get() *responseHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h
}

func (h *responseHandler) Fail(err error) {
	h.once.Do(func() {
		h.runOnWorker(func() {
			h.reg.Remove(h.id)
			if h.token != nil {
				h.token.Cancel()
			}
		})
		// Cancellation closes the connection rather than returning it to
		// the pool (spec.md §5): a closed conn fails Conn.Active(), so the
		// normal release path discards it instead of recycling it.
		var ce *ClientError
		if errors.As(err, &ce) && ce.Kind == KindCancelled && h.closeConn != nil {
			h.closeConn()
		}
		h.hnd.Error(func() {
			h.listener.OnError(err)
		})
		h.future.CompleteExceptionally(err)
		if h.chunkFut != nil {
			h.chunkFut.Complete(nil, err)
		}
	})
}
