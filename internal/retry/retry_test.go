package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithExponentialBackoff_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithExponentialBackoff_ReturnsLastError(t *testing.T) {
	wantErr := errors.New("still broken")
	attempts := 0
	err := WithExponentialBackoff(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
		attempts++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithExponentialBackoff_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := WithExponentialBackoff(ctx, &Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}, func(ctx context.Context, attempt int) error {
		attempts++
		cancel()
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestBackoffDelay_Caps(t *testing.T) {
	cfg := &Config{
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
	}

	if d := backoffDelay(cfg, 1); d != time.Second {
		t.Errorf("attempt 1: expected 1s, got %v", d)
	}
	if d := backoffDelay(cfg, 2); d != 2*time.Second {
		t.Errorf("attempt 2: expected 2s, got %v", d)
	}
	if d := backoffDelay(cfg, 3); d != 3*time.Second {
		t.Errorf("attempt 3: expected cap at 3s, got %v", d)
	}
}
