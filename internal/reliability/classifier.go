package reliability

import (
	"net/http"
	"time"
)

// retryableStatuses are the upstream responses a caller may retry:
// throttling plus transient 5xx failures. Client and auth errors are
// terminal.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func IsRetryableHTTPStatus(code int) bool {
	return retryableStatuses[code]
}

// The live voice endpoint reports failures as message types on the frame
// itself. Quota and load shedding clear up on reconnect; auth and protocol
// violations do not.
var retryableRealtime = map[string]bool{
	"rate_limited":       true,
	"resource_exhausted": true,
	"queue_overflow":     true,
	"error":              true,
}

func IsRetryableRealtimeMessageType(messageType string) bool {
	return retryableRealtime[messageType]
}

// ExponentialBackoff doubles base per attempt, never exceeding cap.
// Attempt zero (or a bogus negative) gets the base delay.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	d := base
	for ; attempt > 0; attempt-- {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
