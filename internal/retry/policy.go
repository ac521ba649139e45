package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/kcenon/cleanupengine/internal/core"
)

// OpKind distinguishes the two retry strategies §4.2 calls for: local
// filesystem operations retry on a fixed delay (contention clears quickly or
// not at all), network operations back off exponentially with jitter
// (remote collaborators need room to recover).
type OpKind int

const (
	OpFilesystem OpKind = iota
	OpNetwork
)

// Policy is a retry policy for one operation kind.
type Policy struct {
	Kind       OpKind
	MaxAttempts int           // total attempts including the first; must be >= 1
	FixedDelay  time.Duration // used when Kind == OpFilesystem
	BaseDelay   time.Duration // used when Kind == OpNetwork: base of the exponential backoff
	MaxDelay    time.Duration // used when Kind == OpNetwork: backoff ceiling
}

// DefaultFilesystemPolicy retries filesystem operations 3 times total with a
// fixed 500ms delay between attempts.
func DefaultFilesystemPolicy() Policy {
	return Policy{
		Kind:        OpFilesystem,
		MaxAttempts: 3,
		FixedDelay:  500 * time.Millisecond,
	}
}

// DefaultNetworkPolicy retries network operations 5 times total with
// exponential backoff (factor 2) from a 1s base up to a 60s ceiling, with
// up to 30% jitter subtracted from each delay.
func DefaultNetworkPolicy() Policy {
	return Policy{
		Kind:        OpNetwork,
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// delay returns the wait before the attempt-th retry (attempt is 1-based:
// the delay before the second attempt is delay(1)).
func (p Policy) delay(attempt int) time.Duration {
	if p.Kind == OpFilesystem {
		return p.FixedDelay
	}

	backoff := p.BaseDelay << attempt
	if backoff <= 0 || backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}
	// Jitter: subtract a uniform random amount of at most 30% of backoff.
	if backoff <= 0 {
		return 0
	}
	return backoff - time.Duration(rand.Int63n(int64(backoff)*3/10+1))
}

// Do runs fn, retrying while Classify reports the error as
// core.ErrTransientIO, and returns fn's last error unchanged (or
// core.ErrCancelled on cancellation). It never retries a permanent error, a
// cancellation, or once MaxAttempts is exhausted. Op is not used.
func Do(ctx context.Context, policy Policy, op string, fn func(ctx context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return core.ErrCancelled
			case <-time.After(policy.delay(attempt)):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		classified := Classify(err)
		lastErr = err

		if errors.Is(classified, core.ErrCancelled) {
			return core.ErrCancelled
		}
		if !errors.Is(classified, core.ErrTransientIO) {
			return err
		}
	}

	return lastErr
}
