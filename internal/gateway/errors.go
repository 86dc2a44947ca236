package gateway

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrorKind is the closed taxonomy every raw provider failure is mapped
// into at the gateway boundary. Downstream retry logic switches over this
// sum type and never inspects message strings itself.
type ErrorKind int

const (
	// KindOther covers transport failures and anything unclassified.
	KindOther ErrorKind = iota
	// KindPermissionDenied is an authorization failure (e.g. HTTP 403).
	// Batch-fatal during the image stage.
	KindPermissionDenied
	// KindRateLimited is a quota / resource-exhausted signal, retryable
	// with backoff. RetryAfter carries the provider's suggested delay
	// when one was present in the response.
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "other"
	}
}

// Error is a classified gateway failure.
type Error struct {
	Kind       ErrorKind
	Status     int           // HTTP status, 0 for transport errors
	RetryAfter time.Duration // provider-suggested delay, 0 when absent
	Message    string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gateway %s (http %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Kind, e.Message)
}

var retryHintPatterns = []*regexp.Regexp{
	// "Please retry in 34.5s" / "retry after 10 seconds"
	regexp.MustCompile(`(?i)retry(?:\s+in|[\s-]*after)[:\s]+([0-9]+(?:\.[0-9]+)?)\s*s`),
	// structured google-style hint: "retryDelay":"34s"
	regexp.MustCompile(`(?i)"retrydelay"\s*:\s*"([0-9]+(?:\.[0-9]+)?)s"`),
}

// Classify maps a raw provider response into the closed error taxonomy.
// It is the only place that sniffs status codes and message strings.
func Classify(status int, body string) *Error {
	msg := strings.TrimSpace(body)
	if len(msg) > 400 {
		msg = msg[:400]
	}
	lower := strings.ToLower(msg)

	switch {
	case status == 401 || status == 403 ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "permission_denied"):
		return &Error{Kind: KindPermissionDenied, Status: status, Message: msg}
	case status == 429 ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "resource exhausted") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota"):
		return &Error{
			Kind:       KindRateLimited,
			Status:     status,
			RetryAfter: parseRetryHint(msg),
			Message:    msg,
		}
	default:
		return &Error{Kind: KindOther, Status: status, Message: msg}
	}
}

// transportError wraps a failed round trip (no HTTP response at all).
func transportError(err error) *Error {
	return &Error{Kind: KindOther, Message: err.Error()}
}

// parseRetryHint extracts a provider-suggested delay in seconds from the
// failure message, returning 0 when none is stated.
func parseRetryHint(body string) time.Duration {
	for _, re := range retryHintPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			if secs, err := strconv.ParseFloat(m[1], 64); err == nil && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return 0
}
