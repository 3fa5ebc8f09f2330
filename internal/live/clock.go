package live

import (
	"sync"
	"time"
)

// PlaybackClock assigns start times to downstream audio frames so the client
// can schedule gapless playback. Start times are strictly monotonic: a frame
// is never scheduled before the end of the previous one, and never in the
// past.
type PlaybackClock struct {
	mu     sync.Mutex
	nextAt time.Time
	now    func() time.Time
}

func NewPlaybackClock() *PlaybackClock {
	return &PlaybackClock{now: time.Now}
}

// Schedule reserves a playback slot of duration d and returns its start time
// in Unix milliseconds.
func (c *PlaybackClock) Schedule(d time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.nextAt.Before(now) {
		c.nextAt = now
	}
	start := c.nextAt
	c.nextAt = start.Add(d)
	return start.UnixMilli()
}

// Flush drops any queued playback beyond now. Used on interruption so new
// speech starts immediately instead of after the abandoned tail.
func (c *PlaybackClock) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextAt = c.now()
}
