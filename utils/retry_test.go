package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryEventuallySucceeds(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewLogger()}

	calls := 0
	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	sentinel := errors.New("unauthorized")
	err := r.Do(context.Background(), "auth", func() error {
		calls++
		return Permanent(sentinel)
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
}

func TestRetryGivesUp(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := r.Do(context.Background(), "down", func() error {
		calls++
		return errors.New("still down")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "cancelled", func() error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
