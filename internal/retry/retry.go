// Package retry runs calls against external services with capped
// exponential backoff between attempts.
package retry

import (
	"context"
	"math/rand"
	"time"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
)

// Policy bounds how often an operation runs and how long the waits
// between attempts grow.
type Policy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
}

// DefaultPolicy suits the transient failures of rate-limited HTTP APIs.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: 500 * time.Millisecond, Cap: 10 * time.Second}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The wait doubles from Base up to Cap, with the
// actual sleep jittered between half and the full backoff.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	backoff := p.Base
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil || !perrors.IsRetryable(err) || attempt == p.Attempts {
			return err
		}

		wait := backoff
		if half := backoff / 2; half > 0 {
			wait = half + time.Duration(rand.Int63n(int64(half)+1))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if backoff < p.Cap/2 {
			backoff *= 2
		} else {
			backoff = p.Cap
		}
	}
}
