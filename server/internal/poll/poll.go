package poll

import (
	"context"
	"errors"
	"time"
)

var ErrExhausted = errors.New("condition not met within the attempt limit")

// Until evaluates cond up to attempts times, sleeping interval between
// unsuccessful attempts. It returns nil as soon as cond reports true,
// the first error cond returns, ErrExhausted, or the context error.
func Until(ctx context.Context, attempts int, interval time.Duration, cond func(attempt int) (bool, error)) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := cond(attempt)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if attempt == attempts {
			break
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return ErrExhausted
}
