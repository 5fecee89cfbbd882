package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var running, peak int64
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency: got %d, want <= 2", peak)
	}
}

func TestWorkerPoolSubmitDoesNotBlock(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	release := make(chan struct{})

	pool.Submit(func() { <-release })

	done := make(chan struct{})
	go func() {
		pool.Submit(func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked while the only worker was busy")
	}

	close(release)
	pool.Wait()
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	if len(timestamps) != 3 {
		t.Fatalf("expected 3 jobs to run, got %d", len(timestamps))
	}
	// Job order is not guaranteed, only the spacing between starts.
	min := time.Duration(rateLimitMs) * time.Millisecond
	first, last := timestamps[0], timestamps[0]
	for _, ts := range timestamps {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	if gap := last.Sub(first); gap < 2*min-5*time.Millisecond {
		t.Errorf("3 jobs spread over %v, want at least %v", gap, 2*min)
	}
}
