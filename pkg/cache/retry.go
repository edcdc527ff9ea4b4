package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNetwork marks a shared cache backend that could not be reached.
// Only errors wrapping it are retried.
var ErrNetwork = errors.New("cache backend unreachable")

// Backoff is a capped exponential retry schedule.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// connectBackoff is used while dialling redis and mongo.
var connectBackoff = Backoff{Attempts: 3, Initial: time.Second, Max: 4 * time.Second}

// Do calls fn until it succeeds, returns an error that does not wrap
// [ErrNetwork], or the attempts run out. The last error is returned.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := b.Initial
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil || !errors.Is(err, ErrNetwork) || attempt >= b.Attempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, b.Max)
	}
}

// ping checks a backend connection under connectBackoff, tagging failures
// with ErrNetwork.
func ping(ctx context.Context, backend string, check func(context.Context) error) error {
	return connectBackoff.Do(ctx, func(ctx context.Context) error {
		if err := check(ctx); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNetwork, backend, err)
		}
		return nil
	})
}
