package providers

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetryDoSucceedsFirstTry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	var calls int32
	result, err := RetryDo(context.Background(), cfg, func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("got %q, want ok", result)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryDoRetriesOnServerError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	var calls int32
	result, err := RetryDo(context.Background(), cfg, func() (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return "", &HTTPError{Status: http.StatusInternalServerError, Body: "boom"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("got %q, want ok", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoStopsOnNonRetryableStatus(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	var calls int32
	_, err := RetryDo(context.Background(), cfg, func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &HTTPError{Status: http.StatusBadRequest, Body: "bad input"}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry on 400), got %d", calls)
	}
}

func TestRetryDoExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	var calls int32
	_, err := RetryDo(context.Background(), cfg, func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != 3 { // initial attempt + 2 retries
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryDoRespectsContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := RetryDo(ctx, cfg, func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", &HTTPError{Status: http.StatusInternalServerError}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	d := ParseRetryAfter("2")
	if d != 2*time.Second {
		t.Errorf("got %v, want 2s", d)
	}
}

func TestParseRetryAfterEmpty(t *testing.T) {
	if d := ParseRetryAfter(""); d != 0 {
		t.Errorf("got %v, want 0", d)
	}
}

func TestParseRetryAfterMalformed(t *testing.T) {
	if d := ParseRetryAfter("not-a-duration"); d != 0 {
		t.Errorf("got %v, want 0", d)
	}
}
