package gateway

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"401 unauthorized", 401, "unauthorized", KindPermissionDenied},
		{"403 forbidden", 403, "forbidden", KindPermissionDenied},
		{"permission denied in body", 500, "PERMISSION_DENIED: key revoked", KindPermissionDenied},
		{"429 too many requests", 429, "slow down", KindRateLimited},
		{"resource exhausted in body", 400, "RESOURCE_EXHAUSTED: quota hit", KindRateLimited},
		{"quota in body", 402, "monthly quota exceeded", KindRateLimited},
		{"rate limit in body", 503, "rate limit reached", KindRateLimited},
		{"plain server error", 500, "internal error", KindOther},
		{"transport-style no status", 0, "connection refused", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.body)
			if got.Kind != tt.want {
				t.Errorf("Classify(%d, %q).Kind = %v, want %v", tt.status, tt.body, got.Kind, tt.want)
			}
			if got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
		})
	}
}

func TestClassifyRetryHints(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"retry in seconds", "rate limit: please retry in 34s", 34 * time.Second},
		{"retry in fractional seconds", "quota exceeded, retry in 2.5s", 2500 * time.Millisecond},
		{"retry after", "rate limit; retry after 10 s", 10 * time.Second},
		{"structured retryDelay", `quota exceeded {"retryDelay":"7s"}`, 7 * time.Second},
		{"no hint", "rate limit exceeded", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(429, tt.body)
			if got.Kind != KindRateLimited {
				t.Fatalf("Kind = %v, want rate_limited", got.Kind)
			}
			if got.RetryAfter != tt.want {
				t.Errorf("RetryAfter = %v, want %v", got.RetryAfter, tt.want)
			}
		})
	}
}

func TestClassifyTruncatesLongBodies(t *testing.T) {
	body := make([]byte, 2000)
	for i := range body {
		body[i] = 'x'
	}
	got := Classify(500, string(body))
	if len(got.Message) > 400 {
		t.Errorf("Message length = %d, want <= 400", len(got.Message))
	}
}
