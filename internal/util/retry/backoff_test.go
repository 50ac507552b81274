package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

func fakeClock() *clocktesting.FakeClock {
	return clocktesting.NewFakeClock(time.Unix(0, 0))
}

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, WithClock(fakeClock()))

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithClock(fakeClock()))

	if err != nil {
		t.Errorf("Expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_MaxRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	}, WithMaxRetries(2), WithClock(fakeClock()))

	if err == nil {
		t.Fatal("Expected error after max retries, got nil")
	}
	// total attempts = 1 + retries
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_DelaysAreCapped(t *testing.T) {
	t.Parallel()
	clk := fakeClock()
	start := clk.Now()

	_ = WithExponentialBackoff(context.Background(), func() error {
		return errors.New("error")
	},
		WithMaxRetries(4),
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(300*time.Millisecond),
		WithClock(clk))

	// 100ms + 200ms + 300ms + 300ms
	if got := clk.Since(start); got != 900*time.Millisecond {
		t.Errorf("Expected 900ms of sleeping, got: %v", got)
	}
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	t.Parallel()
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func() error {
		attempts++
		return errors.New("error")
	}, WithClock(fakeClock()))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before context check, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_FatalError(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(errors.New("fatal error"))
	}, WithClock(fakeClock()))

	if !IsFatal(err) {
		t.Errorf("Expected fatal error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retries for fatal error), got: %d", attempts)
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		if err := Fatal(nil); err != nil {
			t.Errorf("Expected nil, got: %v", err)
		}
	})

	t.Run("message is preserved", func(t *testing.T) {
		t.Parallel()
		original := errors.New("test error")
		err := Fatal(original)
		if err.Error() != original.Error() {
			t.Errorf("Expected error message %q, got %q", original.Error(), err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("errors.Is should find the wrapped error")
		}
	})

	t.Run("detected through wrapping", func(t *testing.T) {
		t.Parallel()
		wrapped := fmt.Errorf("context: %w", Fatal(errors.New("base")))
		if !IsFatal(wrapped) {
			t.Error("IsFatal should detect FatalError through fmt.Errorf wrapping")
		}
		if IsFatal(errors.New("regular error")) {
			t.Error("Expected non-fatal error")
		}
	})
}
