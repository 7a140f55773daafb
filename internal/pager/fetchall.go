package pager

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/wordsync"
)

// Policy bounds the retries FetchAll makes for each page.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy retries a page five times starting at 200ms.
var DefaultPolicy = Policy{
	MaxRetries:      5,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// retryable reports whether a failed fetch is worth another attempt.
func retryable(err error) bool {
	return errs.IsTransport(err) || errs.Is(err, errs.RateLimited)
}

// FetchAll calls FetchMore until the engine is exhausted, retrying transient
// failures with exponential backoff. The engine itself never retries; this is
// the caller-driven loop. It returns the number of records added.
func FetchAll(ctx context.Context, engine *wordsync.Engine, policy Policy) (int, error) {
	logger := obs.From(ctx).With("pkg", "pager")
	added := 0

	for {
		var res wordsync.FetchResult
		op := func() error {
			r, err := engine.FetchMore(ctx)
			if err != nil {
				if retryable(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			if r.Skipped && !r.Exhausted {
				// Another caller's fetch is in flight; wait for it.
				return errs.New(errs.Unavailable, "fetch already in flight")
			}
			res = r
			return nil
		}
		notify := func(err error, wait time.Duration) {
			logger.Warn("fetch_retry", "error", err.Error(), "wait_ms", wait.Milliseconds())
		}

		if err := backoff.RetryNotify(op, policy.backOff(ctx), notify); err != nil {
			return added, err
		}
		added += res.Added
		if res.Exhausted {
			return added, nil
		}
	}
}
