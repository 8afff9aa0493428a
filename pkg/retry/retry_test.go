package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kshitizz36/Urumi-AI/pkg/retry"
)

func TestDo(t *testing.T) {
	t.Run("it returns immediately on success", func(t *testing.T) {
		calls := 0
		v, err := retry.Do(context.Background(), retry.DefaultPolicy(), retry.AlwaysRetry, func() (int, error) {
			calls++
			return 42, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if v != 42 || calls != 1 {
			t.Errorf("(v, calls) = (%d, %d)", v, calls)
		}
	})

	t.Run("it retries until success within the retry budget", func(t *testing.T) {
		policy := retry.Policy{MaxRetries: 3, Initial: time.Millisecond, Max: 10 * time.Millisecond, Multiplier: 2}
		calls := 0
		v, err := retry.Do(context.Background(), policy, retry.AlwaysRetry, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if v != 7 || calls != 3 {
			t.Errorf("(v, calls) = (%d, %d)", v, calls)
		}
	})

	t.Run("it surfaces the last error once retries are exhausted", func(t *testing.T) {
		policy := retry.Policy{MaxRetries: 2, Initial: time.Millisecond, Max: 10 * time.Millisecond, Multiplier: 2}
		calls := 0
		expected := errors.New("still failing")
		_, err := retry.Do(context.Background(), policy, retry.AlwaysRetry, func() (int, error) {
			calls++
			return 0, expected
		})
		if !errors.Is(err, expected) {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 3 { // 1 initial + 2 retries
			t.Errorf("calls = %d", calls)
		}
	})

	t.Run("it does not retry a non-retryable error", func(t *testing.T) {
		calls := 0
		neverRetry := func(error) bool { return false }
		_, err := retry.Do(context.Background(), retry.DefaultPolicy(), neverRetry, func() (int, error) {
			calls++
			return 0, errors.New("permanent")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, expected 1 (no retry)", calls)
		}
	})

	t.Run("it aborts immediately on context cancellation between attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		policy := retry.Policy{MaxRetries: 5, Initial: 50 * time.Millisecond, Max: time.Second, Multiplier: 2}

		calls := 0
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := retry.Do(ctx, policy, retry.AlwaysRetry, func() (int, error) {
			calls++
			return 0, errors.New("transient")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestDeadline(t *testing.T) {
	t.Run("zero budget is immediately expired", func(t *testing.T) {
		d := retry.NewDeadline(0)
		if !d.Expired() {
			t.Error("expected expired")
		}
		if err := d.Check(); err == nil {
			t.Error("expected deadline-exceeded error")
		}
	})

	t.Run("Wrap fails immediately when the deadline has already elapsed", func(t *testing.T) {
		d := retry.NewDeadline(0)
		called := false
		_, err := retry.Wrap(context.Background(), d, func(ctx context.Context) (int, error) {
			called = true
			return 0, nil
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if called {
			t.Error("inner function should not run once deadline has elapsed")
		}
	})

	t.Run("Wrap succeeds within budget", func(t *testing.T) {
		d := retry.NewDeadline(time.Second)
		v, err := retry.Wrap(context.Background(), d, func(ctx context.Context) (int, error) {
			return 9, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if v != 9 {
			t.Errorf("v = %d", v)
		}
	})

	t.Run("Wrap maps context deadline exceeded to a domain deadline error", func(t *testing.T) {
		d := retry.NewDeadline(10 * time.Millisecond)
		_, err := retry.Wrap(context.Background(), d, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
