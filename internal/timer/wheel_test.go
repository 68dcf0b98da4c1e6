package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFires(t *testing.T) {
	w := New(5*time.Millisecond, 16)
	defer w.Stop()

	var fired int32
	done := make(chan struct{})
	w.Schedule(func() {
		atomic.StoreInt32(&fired, 1)
		close(done)
	}, 10*time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&fired))
}

func TestCancelledTokenNeverFires(t *testing.T) {
	w := New(5*time.Millisecond, 16)
	defer w.Stop()

	var fired int32
	token := w.Schedule(func() { atomic.StoreInt32(&fired, 1) }, 20*time.Millisecond)
	token.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fired), "a cancelled read-timeout token must never fire (invariant I7)")
}

func TestStopReturnsLiveTokens(t *testing.T) {
	w := New(5*time.Millisecond, 16)
	tok := w.Schedule(func() {}, time.Hour)

	live := w.Stop()
	require.Len(t, live, 1)
	assert.Equal(t, tok, live[0])
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv(envTickDurationMs, "10")
	t.Setenv(envWheelSize, "64")

	w := NewFromEnv()
	assert.Equal(t, 10*time.Millisecond, w.tick)
	assert.Equal(t, 64, w.size)
}
