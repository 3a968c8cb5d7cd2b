package github

import (
	"context"
	"net/http"
	"strconv"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

const (
	// Pages are paced once fewer than this many requests remain.
	throttleThreshold = 100

	// maxBackoff caps the server error backoff.
	maxBackoff = 60 * time.Second

	// maxRetries is the number of retries per page after the first attempt.
	maxRetries = 3

	// fallbackWait is used for a rate limit response that says nothing about
	// when to come back.
	fallbackWait = 60 * time.Second
)

// quota is the rate limit state GitHub reports on every response.
type quota struct {
	known     bool
	remaining int
	reset     time.Time
}

// readQuota extracts the X-RateLimit headers. A response without them, or
// with a malformed remaining count, yields an unknown quota.
func readQuota(resp *http.Response) quota {
	if resp == nil {
		return quota{}
	}
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return quota{}
	}
	q := quota{known: true, remaining: remaining}
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		q.reset = time.Unix(reset, 0)
	}
	return q
}

// low reports whether the next page should wait for the window to reset.
func (q quota) low() bool {
	return q.known && q.remaining < throttleThreshold
}

// untilReset is the time left in the current window, never negative.
func (q quota) untilReset(now time.Time) time.Duration {
	if q.reset.IsZero() || !q.reset.After(now) {
		return 0
	}
	return q.reset.Sub(now)
}

// rateLimited reports whether resp is a primary or secondary rate limit.
// GitHub also answers 403 for missing permissions; those carry neither a
// Retry-After header nor an exhausted quota and are not retried.
func rateLimited(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		if resp.Header.Get("Retry-After") != "" {
			return true
		}
		q := readQuota(resp)
		return q.known && q.remaining == 0
	}
	return false
}

// retryDelay decides whether a failed page request is worth another attempt
// and how long to wait first. Retry-After wins over the quota reset time.
func retryDelay(resp *http.Response, attempt int, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	if rateLimited(resp) {
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s >= 0 {
			return time.Duration(s) * time.Second, true
		}
		if wait := readQuota(resp).untilReset(now); wait > 0 {
			return wait, true
		}
		return fallbackWait, true
	}
	if resp.StatusCode >= 500 && resp.StatusCode < 600 {
		return backoff(attempt), true
	}
	return 0, false
}

// BackoffDuration is the wait before retry attempt (0-indexed): 1s, 2s,
// 4s and so on, capped at maxBackoff.
func BackoffDuration(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 6 {
		return maxBackoff
	}
	return min(time.Duration(1<<attempt)*time.Second, maxBackoff)
}

func responseOf(resp *gogithub.Response) *http.Response {
	if resp == nil {
		return nil
	}
	return resp.Response
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
