package test_helpers

import (
	"sync"
	"time"
)

// RunConcurrent calls fn from n goroutines at once and returns the error of
// each call by index.
func RunConcurrent(n int, fn func(index int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			<-start
			errs[index] = fn(index)
		}(i)
	}

	close(start)
	wg.Wait()
	return errs
}

// PerformanceMetrics tracks request latencies of a test run
type PerformanceMetrics struct {
	mu             sync.Mutex
	RequestCount   int64
	ErrorCount     int64
	MinLatency     time.Duration
	MaxLatency     time.Duration
	totalLatencies time.Duration
}

// NewPerformanceMetrics returns empty metrics.
func NewPerformanceMetrics() *PerformanceMetrics {
	return &PerformanceMetrics{MinLatency: time.Hour}
}

// Measure times fn and records the result.
func (pm *PerformanceMetrics) Measure(fn func() error) error {
	start := time.Now()
	err := fn()
	pm.Record(time.Since(start), err)
	return err
}

// Record records one request
func (pm *PerformanceMetrics) Record(latency time.Duration, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.RequestCount++
	if err != nil {
		pm.ErrorCount++
	}
	pm.totalLatencies += latency
	if latency < pm.MinLatency {
		pm.MinLatency = latency
	}
	if latency > pm.MaxLatency {
		pm.MaxLatency = latency
	}
}

// AverageLatency returns the mean latency of recorded requests.
func (pm *PerformanceMetrics) AverageLatency() time.Duration {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.RequestCount == 0 {
		return 0
	}
	return pm.totalLatencies / time.Duration(pm.RequestCount)
}
