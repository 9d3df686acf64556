package ratelimit

import (
	"math"
	"strconv"
	"time"
)

// Headers produces the standard rate limit headers for a result:
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset (seconds
// since epoch) always, plus Retry-After (seconds, minimum 1) when
// includeRetryAfter is set.
func Headers(result Result, includeRetryAfter bool) map[string]string {
	return headersAt(result, includeRetryAfter, time.Now())
}

func headersAt(result Result, includeRetryAfter bool, now time.Time) map[string]string {
	h := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(result.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(result.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(ceilUnixSeconds(result.ResetAt), 10),
	}
	if includeRetryAfter {
		h["Retry-After"] = strconv.Itoa(retryAfterSeconds(result, now))
	}
	return h
}

// retryAfterSeconds sizes Retry-After to the gap until the window resets,
// never below one second.
func retryAfterSeconds(result Result, now time.Time) int {
	secs := int(math.Ceil(result.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func ceilUnixSeconds(t time.Time) int64 {
	ms := t.UnixMilli()
	return (ms + 999) / 1000
}
