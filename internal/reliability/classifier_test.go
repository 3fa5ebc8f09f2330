package reliability

import (
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 204, 400, 401, 403, 404, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}

func TestIsRetryableRealtimeMessageType(t *testing.T) {
	for _, mt := range []string{"rate_limited", "resource_exhausted", "queue_overflow", "error"} {
		if !IsRetryableRealtimeMessageType(mt) {
			t.Fatalf("%q should be retryable", mt)
		}
	}
	for _, mt := range []string{"auth_failed", "invalid_request", "", "session_ended"} {
		if IsRetryableRealtimeMessageType(mt) {
			t.Fatalf("%q should not be retryable", mt)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	limit := 5 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, base},
		{-1, base},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, limit},
		{10, limit},
	}
	for _, tt := range tests {
		if got := ExponentialBackoff(tt.attempt, base, limit); got != tt.want {
			t.Fatalf("ExponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
