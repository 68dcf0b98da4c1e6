package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	completed interface{}
	failed    error
}

func (h *recordingHandler) Complete(payload interface{}) { h.completed = payload }
func (h *recordingHandler) Fail(err error)                { h.failed = err }

func TestHTTP1AlwaysAssignsOne(t *testing.T) {
	r := NewHTTP1()
	id := r.Put(&recordingHandler{})
	assert.EqualValues(t, 1, id)

	id2 := r.Put(&recordingHandler{})
	assert.EqualValues(t, 1, id2, "HTTP/1 registry always reuses id 1")
}

func TestHTTP2AssignsOddIncreasingIDs(t *testing.T) {
	r := NewHTTP2()
	id1 := r.Put(&recordingHandler{})
	id2 := r.Put(&recordingHandler{})
	assert.EqualValues(t, 1, id1)
	assert.EqualValues(t, 3, id2)
}

func TestHTTP2ReusesIDAfterRemove(t *testing.T) {
	r := NewHTTP2()
	id1 := r.Put(&recordingHandler{})
	r.Remove(id1)

	// Ids are assigned monotonically, so a removed id comes back once
	// assignment wraps past 2^31-1.
	r.nextID = 1<<31 - 1
	last := r.Put(&recordingHandler{})
	assert.EqualValues(t, 1<<31-1, last)

	id2 := r.Put(&recordingHandler{})
	assert.EqualValues(t, id1, id2)
}

func TestClearFailsAllOutstanding(t *testing.T) {
	r := NewHTTP2()
	h1, h2 := &recordingHandler{}, &recordingHandler{}
	r.Put(h1)
	r.Put(h2)

	cause := errors.New("connection closed")
	r.Clear(cause)

	assert.Equal(t, cause, h1.failed)
	assert.Equal(t, cause, h2.failed)
	assert.Equal(t, 0, r.Len())
}

func TestFailAndRemoveMissingIsNoop(t *testing.T) {
	r := NewHTTP2()
	assert.False(t, r.FailAndRemove(99, errors.New("timeout")))
}

func TestFailAndRemoveFiresOnce(t *testing.T) {
	r := NewHTTP2()
	h := &recordingHandler{}
	id := r.Put(h)

	assert.True(t, r.FailAndRemove(id, errors.New("read timeout")))
	assert.False(t, r.FailAndRemove(id, errors.New("read timeout")), "second fire must be a no-op (invariant I7)")
}
