package flux

import (
	"context"
	"time"

	"github.com/sakif/socialboard/internal/apperror"
)

const maxBackoff = 5 * time.Second

// calculateBackoff doubles base for each previous failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// retry runs fn up to 1+retries times. Typed application errors are final and
// returned immediately; anything else is treated as transient.
func retry[T any](ctx context.Context, retries int, base time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := 0; ; attempt++ {
		v, err = fn(ctx)
		if err == nil || apperror.IsTyped(err) || attempt >= retries {
			return v, err
		}
		select {
		case <-ctx.Done():
			return v, err
		case <-time.After(calculateBackoff(attempt, base)):
		}
	}
}
