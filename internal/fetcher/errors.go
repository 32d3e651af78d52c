package fetcher

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when quota stayed exhausted across every retry.
// Callers back off and retry after ResetAt.
type RateLimitError struct {
	ResetAt  time.Time
	Attempts int
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("github: rate limit exceeded after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("github: rate limit exceeded after %d attempts, resets at %s", e.Attempts, e.ResetAt.Format(time.RFC3339))
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
