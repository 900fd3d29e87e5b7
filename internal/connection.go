package internal

import (
	"context"
	"sync"
)

// ConnectionManager guards client initialization. Initialization runs at most
// once at a time and, once it succeeds, never again. A failed attempt is
// remembered and retried by the next Initialize call.
type ConnectionManager struct {
	mu      sync.Mutex
	done    bool
	lastErr error
	ready   chan struct{}
}

// NewConnectionManager creates a new ConnectionManager instance ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		ready: make(chan struct{}),
	}
}

// Initialize runs fn unless a previous call already succeeded. Concurrent
// callers are serialized, so only one fn runs at a time.
func (cm *ConnectionManager) Initialize(ctx context.Context, fn func(context.Context) error) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.done {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cm.lastErr = fn(ctx)
	if cm.lastErr == nil {
		cm.done = true
		close(cm.ready)
	}
	return cm.lastErr
}

// Error returns the error of the most recent failed attempt, if any.
func (cm *ConnectionManager) Error() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.lastErr
}

// IsInitialized reports whether initialization has succeeded.
func (cm *ConnectionManager) IsInitialized() bool {
	select {
	case <-cm.ready:
		return true
	default:
		return false
	}
}

// Ready is closed once initialization succeeds.
func (cm *ConnectionManager) Ready() <-chan struct{} {
	return cm.ready
}
