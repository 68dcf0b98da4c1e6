package affinity

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunExecutesExactlyOnceOnWorkerGoroutine(t *testing.T) {
	w := NewWorker()
	defer w.Close()

	var workerGoroutine uint64
	var calls int
	var mu sync.Mutex

	record := func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	w.Run(func() { workerGoroutine = goroutineID(); record() })

	var wg sync.WaitGroup
	seen := make([]uint64, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Run(func() {
				seen[i] = goroutineID()
				record()
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 9, calls)
	for _, g := range seen {
		assert.Equal(t, workerGoroutine, g, "every submitted task must run on the same worker goroutine")
	}
}

func TestCloseStopsAcceptingNewTasks(t *testing.T) {
	w := NewWorker()
	w.Close()

	ran := false
	w.Run(func() { ran = true })
	assert.False(t, ran, "a task submitted after Close must not run")
}

// goroutineID is test-only introspection (no production code path depends
// on the numeric id), used solely to assert same-goroutine execution.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(b []byte) uint64 {
	// b looks like "goroutine 123 [running]: ..."
	const prefix = "goroutine "
	i := len(prefix)
	var id uint64
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		id = id*10 + uint64(b[i]-'0')
		i++
	}
	return id
}
