// Package retry provides a bounded, exponentially backed-off executor for
// outbound send operations. A send either fully succeeds within the attempt
// budget or is reported exhausted; there is no jitter, circuit breaking, or
// partial-success tracking.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted signals that every attempt failed. The last attempt's error
// is wrapped alongside it and remains reachable via errors.Is/As.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy configures the retry loop. The delay before retry n (1-based) is
// InitialDelay * Factor^(n-1).
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Factor       float64
}

// DefaultPolicy matches the canonical delivery configuration: three
// attempts, one second initial delay, doubling.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: time.Second, Factor: 2}
}

// Do runs op until it succeeds or the policy's attempt budget is spent.
// The backoff sleep blocks only the calling goroutine and honors ctx: a
// canceled context aborts the wait and returns the context error wrapped
// with the last op error.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Factor < 1 {
		p.Factor = 1
	}

	delay := p.InitialDelay
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return joinLast(err, last)
		}
		if last = op(); last == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return joinLast(err, last)
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, last)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func joinLast(err, last error) error {
	if last == nil {
		return err
	}
	return fmt.Errorf("%w (last attempt: %w)", err, last)
}
