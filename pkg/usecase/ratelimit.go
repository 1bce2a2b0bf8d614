package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/taskmirror/pkg/service/asana"
	"github.com/secmon-lab/taskmirror/pkg/utils/logging"
)

// maxRateLimitRetries bounds retries beyond the first attempt
const maxRateLimitRetries = 3

// backoffSchedule is indexed by attempt number; further attempts reuse the
// last value
var backoffSchedule = []time.Duration{60 * time.Second, 120 * time.Second, 240 * time.Second}

func backoffFor(attempt int) time.Duration {
	if attempt >= len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempt]
}

// callAPI invokes a remote-call thunk, retrying on rate-limit errors with the
// fixed backoff schedule. Any other error propagates immediately, unchanged.
// After exhausting retries the last rate-limit error is returned.
func callAPI[T any](ctx context.Context, uc *UseCases, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if !asana.IsRateLimit(err) || attempt >= maxRateLimitRetries {
			return zero, err
		}

		wait := backoffFor(attempt)
		logging.From(ctx).Warn("rate limited by remote API, backing off",
			"wait", wait.String(),
			"retry", attempt+1,
			"max_retries", maxRateLimitRetries)
		if sleepErr := uc.sleep(ctx, wait); sleepErr != nil {
			return zero, sleepErr
		}
	}
}
