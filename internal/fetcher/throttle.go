package fetcher

import (
	"time"

	"golang.org/x/time/rate"
)

// newThrottle spaces requests at least delay apart. The first request
// always goes through immediately.
func newThrottle(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
