package httpclient

import "sync"

// ChunkWriter lets streaming producers push additional request-body bytes
// after headers (and, for HTTP/1 with Expect: 100-continue, once the
// interim 100 Continue response has been read). End() terminates the body
// (spec.md §4.6, §9).
type ChunkWriter interface {
	Write(p []byte) (int, error)
	End() error
}

// Context is the mutable per-request scratchpad observable to interceptors
// and the core (spec.md §3). Created when the user issues the request,
// discarded once the Future completes.
type Context struct {
	mu sync.Mutex
	kv map[string]interface{}
}

// Context attribute keys (spec.md §6).
const (
	KeyExpectContinueEnabled  = "EXPECT_CONTINUE_ENABLED"
	KeyExpectContinueCallback = "EXPECT_CONTINUE_CALLBACK"
	KeyChunkWriter            = "CHUNK_WRITER"
)

func NewContext() *Context {
	return &Context{kv: make(map[string]interface{})}
}

func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kv[key] = value
}

func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.kv[key]
	return v, ok
}

// ChunkWriterFuture is the value stored at KeyChunkWriter: a promise for
// the RequestWriter's ChunkWriter handle, resolved after the writer is
// invoked but before its write completes (spec.md §4.8 step 12, §9).
type ChunkWriterFuture struct {
	mu   sync.Mutex
	done chan struct{}
	w    ChunkWriter
	err  error
}

func NewChunkWriterFuture() *ChunkWriterFuture {
	return &ChunkWriterFuture{done: make(chan struct{})}
}

func (f *ChunkWriterFuture) Complete(w ChunkWriter, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return
	default:
	}
	f.w, f.err = w, err
	close(f.done)
}

func (f *ChunkWriterFuture) Get() (ChunkWriter, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w, f.err
}

func (f *ChunkWriterFuture) Done() <-chan struct{} { return f.done }
