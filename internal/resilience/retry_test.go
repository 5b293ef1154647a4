package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetry_Defaults(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()
	if cfg.MaxRetries != 10 {
		t.Errorf("expected default MaxRetries=10, got %d", cfg.MaxRetries)
	}
	if cfg.Backoff != 1*time.Second {
		t.Errorf("expected default Backoff=1s, got %v", cfg.Backoff)
	}
	if cfg.MaxBackoff != 30*time.Second {
		t.Errorf("expected default MaxBackoff=30s, got %v", cfg.MaxBackoff)
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), RetryConfig{Name: "node"}, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), RetryConfig{
		Name:       "node",
		MaxRetries: 5,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	}, func(context.Context) error {
		if calls.Add(1) < 3 {
			return errTest
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), RetryConfig{
		Name:       "node",
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	}, func(context.Context) error {
		calls.Add(1)
		return errTest
	})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, errTest) {
		t.Errorf("expected the last failure to be wrapped, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, RetryConfig{Backoff: time.Hour}, func(context.Context) error {
			calls.Add(1)
			return errTest
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestRetry_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryConfig{}, func(context.Context) error {
		t.Error("fn must not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
