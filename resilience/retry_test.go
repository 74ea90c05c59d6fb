package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/wholecell/pipekit/errors"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 || calls != 1 {
		t.Errorf("got %d after %d calls", got, calls)
	}
}

func TestRetry_EventualSuccess(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastConfig(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", stderrors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	fail := stderrors.New("always broken")
	_, err := Retry(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		return 0, fail
	})
	if !stderrors.Is(err, fail) {
		t.Errorf("err = %v, want last error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_NonRetryableStopsEarly(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastConfig(5), func() (int, error) {
		calls++
		return 0, errors.TypeMismatch("slice", "map")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error retried %d times", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, fastConfig(3), func() (int, error) {
		return 0, stderrors.New("should not matter")
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryFunc(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastConfig(2), func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}
