package helpers

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// GoroutineSnapshot captures the state of goroutines at a point in time
type GoroutineSnapshot struct {
	Count     int
	Timestamp time.Time
}

// TakeGoroutineSnapshot captures current goroutine count
func TakeGoroutineSnapshot() *GoroutineSnapshot {
	return &GoroutineSnapshot{
		Count:     runtime.NumGoroutine(),
		Timestamp: time.Now(),
	}
}

// WaitForGoroutineCleanup waits until the goroutine count is back within
// tolerance of before. Idle HTTP connections are the usual stragglers, so
// callers should close them before waiting.
func WaitForGoroutineCleanup(before *GoroutineSnapshot, maxWait time.Duration, tolerance int) error {
	deadline := time.Now().Add(maxWait)

	for {
		current := runtime.NumGoroutine()
		if current-before.Count <= tolerance {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("goroutine leak detected: started with %d, ended with %d (tolerance %d)",
				before.Count, current, tolerance)
		}

		runtime.GC()
		time.Sleep(50 * time.Millisecond)
	}
}

// ConcurrencyTracker records how many calls are in flight at once.
type ConcurrencyTracker struct {
	mu      sync.Mutex
	current int
	peak    int
	total   int
}

// Enter marks the start of a call. The returned func marks its end.
func (ct *ConcurrencyTracker) Enter() func() {
	ct.mu.Lock()
	ct.current++
	ct.total++
	if ct.current > ct.peak {
		ct.peak = ct.current
	}
	ct.mu.Unlock()

	return func() {
		ct.mu.Lock()
		ct.current--
		ct.mu.Unlock()
	}
}

// Peak returns the highest number of simultaneous calls seen.
func (ct *ConcurrencyTracker) Peak() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.peak
}

// Total returns how many calls were made.
func (ct *ConcurrencyTracker) Total() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.total
}
