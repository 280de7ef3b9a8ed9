package pipeline

import (
	"context"
	"time"

	"github.com/beaconhq/beacon/pkg/fault"
)

// RetryConfig bounds the retry loop around transient external calls.
// Attempts is the number of retries after the initial try, so a call is made
// at most Attempts+1 times.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	return c
}

// retry runs op once plus up to cfg.Attempts retries with exponential
// backoff between tries, retrying only failures the taxonomy marks
// retryable. Exhausted throttling escalates to an upstream failure so
// callers see a single terminal kind.
func retry(ctx context.Context, cfg RetryConfig, op func() error) error {
	var err error
	for i := 0; i <= cfg.Attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if !fault.Retryable(err) {
			return err
		}
		if i < cfg.Attempts {
			delay := cfg.BaseDelay * (1 << uint(i))
			select {
			case <-ctx.Done():
				return fault.Wrap(fault.UpstreamUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	if fault.IsKind(err, fault.RateLimited) {
		return fault.Wrap(fault.UpstreamUnavailable, err)
	}
	return err
}
