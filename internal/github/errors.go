package github

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound marks a 404 from the contents or README endpoints. Callers treat
// it as absence of signal.
var ErrNotFound = errors.New("github: not found")

// HTTPError is any non-success status other than 404.
type HTTPError struct {
	StatusCode int
	URL        string
	Header     http.Header
}

func (e *HTTPError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("github: http %d", e.StatusCode)
	}
	return fmt.Sprintf("github: http %d (%s)", e.StatusCode, e.URL)
}

// GraphQLError is one entry of a GraphQL "errors" payload.
type GraphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GraphQLErrors is returned when a GraphQL response carries errors.
type GraphQLErrors struct {
	Errors []GraphQLError
}

func (e *GraphQLErrors) Error() string {
	if len(e.Errors) == 0 {
		return "graphql: unknown error"
	}
	return "graphql: " + e.Errors[0].Message
}

// RateLimited reports whether any entry is a RATE_LIMITED error.
func (e *GraphQLErrors) RateLimited() bool {
	for _, ge := range e.Errors {
		if strings.EqualFold(ge.Type, "RATE_LIMITED") {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err marks a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimitStatus reports whether a response status and headers indicate
// quota exhaustion for the credential that made the call.
func IsRateLimitStatus(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	if resp.Header.Get("Retry-After") != "" {
		return true
	}
	return resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// Quota is the rate-limit metadata carried by a response.
type Quota struct {
	Remaining int // -1 when absent
	Reset     time.Time
}

// QuotaFromHeader reads X-RateLimit-Remaining / X-RateLimit-Reset, plus
// Retry-After as a reset override.
func QuotaFromHeader(h http.Header, now time.Time) Quota {
	q := Quota{Remaining: -1}
	if h == nil {
		return q
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			q.Remaining = n
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			q.Reset = time.Unix(n, 0)
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			until := now.Add(time.Duration(n) * time.Second)
			if until.After(q.Reset) {
				q.Reset = until
			}
		}
	}
	return q
}
