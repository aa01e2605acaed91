package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, InitialDelay: time.Hour, Factor: 2}, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDo_ThirdAttemptSucceedsWithBackoffSpacing(t *testing.T) {
	const initial = 20 * time.Millisecond
	var stamps []time.Time

	err := Do(context.Background(), Policy{MaxAttempts: 3, InitialDelay: initial, Factor: 2}, func() error {
		stamps = append(stamps, time.Now())
		if len(stamps) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("invocations = %d, want exactly 3", len(stamps))
	}
	// Second attempt no sooner than initialDelay; third no sooner than
	// initialDelay*factor after the second.
	if gap := stamps[1].Sub(stamps[0]); gap < initial {
		t.Fatalf("gap before attempt 2 = %v, want >= %v", gap, initial)
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 2*initial {
		t.Fatalf("gap before attempt 3 = %v, want >= %v", gap, 2*initial)
	}
}

func TestDo_ExhaustionWrapsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	calls := 0

	err := Do(context.Background(), Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Factor: 2}, func() error {
		calls++
		return sentinel
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped last error", err)
	}
}

func TestDo_ContextCancelAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Do(ctx, Policy{MaxAttempts: 3, InitialDelay: time.Hour, Factor: 2}, func() error {
		calls++
		return errors.New("transient")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancel did not abort the backoff sleep (took %v)", elapsed)
	}
}

func TestDo_DegeneratePolicyCoercedToOneAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 0, InitialDelay: 0, Factor: 0}, func() error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}
