package internal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestConnectionManager_RunsOnceOnSuccess(t *testing.T) {
	cm := NewConnectionManager()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cm.Initialize(context.Background(), func(context.Context) error {
				calls.Add(1)
				return nil
			}); err != nil {
				t.Errorf("Initialize returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected one initialization, got %d", got)
	}
	if !cm.IsInitialized() {
		t.Error("expected manager to be initialized")
	}
	select {
	case <-cm.Ready():
	default:
		t.Error("expected Ready to be closed")
	}
}

func TestConnectionManager_RetriesAfterFailure(t *testing.T) {
	cm := NewConnectionManager()
	boom := errors.New("token endpoint down")

	if err := cm.Initialize(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected failure, got %v", err)
	}
	if cm.IsInitialized() {
		t.Fatal("failed initialization must not mark the manager ready")
	}
	if !errors.Is(cm.Error(), boom) {
		t.Errorf("expected Error to report the failure, got %v", cm.Error())
	}

	if err := cm.Initialize(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !cm.IsInitialized() || cm.Error() != nil {
		t.Error("expected manager to be ready after a successful retry")
	}
}

func TestConnectionManager_CanceledContext(t *testing.T) {
	cm := NewConnectionManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := cm.Initialize(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("expected context error without running init, got %v (called=%v)", err, called)
	}
}
