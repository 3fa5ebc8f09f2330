package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aikonstudios/aikon/internal/audio"
)

// State is the lifecycle phase of a live voice session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateError      State = "error"
	StateEnded      State = "ended"
)

// stateOrder enforces forward-only transitions; error and ended are both
// terminal.
var stateOrder = map[State]int{
	StateIdle:       0,
	StateConnecting: 1,
	StateConnected:  2,
	StateError:      3,
	StateEnded:      3,
}

var (
	ErrNotConnected = errors.New("live: session not connected")
	ErrTerminal     = errors.New("live: session already terminal")
)

// Framer owns one live voice session: it validates and forwards mic frames
// upstream and schedules downstream speech on a monotonic playback clock.
// Mute drops outgoing frames without touching the upstream connection.
type Framer struct {
	SessionID string
	PersonaID string

	mu     sync.Mutex
	state  State
	muted  bool
	stream Stream
	clock  *PlaybackClock
	seq    int
}

func NewFramer(sessionID, personaID string) *Framer {
	return &Framer{
		SessionID: sessionID,
		PersonaID: personaID,
		state:     StateIdle,
		clock:     NewPlaybackClock(),
	}
}

func (f *Framer) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Framer) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

// SetMuted flips the mic gate. Returns false when the session is terminal.
func (f *Framer) SetMuted(muted bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stateOrder[f.state] >= stateOrder[StateError] {
		return false
	}
	f.muted = muted
	return true
}

// Connect dials the endpoint and moves the session to connected. The caller
// consumes the returned event channel until it closes.
func (f *Framer) Connect(ctx context.Context, endpoint Endpoint) (<-chan Event, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, fmt.Errorf("live: connect from state %s", f.state)
	}
	f.state = StateConnecting
	f.mu.Unlock()

	stream, events, err := endpoint.Connect(ctx, f.SessionID, f.PersonaID)
	if err != nil {
		f.fail()
		return nil, err
	}

	f.mu.Lock()
	f.stream = stream
	f.state = StateConnected
	f.mu.Unlock()
	return events, nil
}

// ForwardFrame decodes one base64 mic frame and sends it upstream. Muted
// sessions swallow the frame and report it dropped.
func (f *Framer) ForwardFrame(ctx context.Context, encoded string, sampleRate int) (dropped bool, err error) {
	pcm, err := audio.DecodeFrame(encoded)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	if f.state != StateConnected {
		f.mu.Unlock()
		return false, ErrNotConnected
	}
	if f.muted {
		f.mu.Unlock()
		return true, nil
	}
	stream := f.stream
	f.mu.Unlock()

	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return false, stream.SendAudio(ctx, pcm, sampleRate)
}

// SchedulePlayback reserves a playback slot for a downstream frame and
// returns its sequence number and start time in Unix milliseconds.
func (f *Framer) SchedulePlayback(pcm []byte, sampleRate int) (seq int, startAtMs int64) {
	if sampleRate <= 0 {
		sampleRate = audio.PlaybackSampleRate
	}
	startAtMs = f.clock.Schedule(audio.Duration(pcm, sampleRate))

	f.mu.Lock()
	f.seq++
	seq = f.seq
	f.mu.Unlock()
	return seq, startAtMs
}

// Interrupt drops queued playback so the next frame starts immediately.
func (f *Framer) Interrupt() { f.clock.Flush() }

// End closes the upstream connection and moves the session to ended.
func (f *Framer) End() error {
	f.mu.Lock()
	if stateOrder[f.state] >= stateOrder[StateError] {
		f.mu.Unlock()
		return ErrTerminal
	}
	stream := f.stream
	f.stream = nil
	f.state = StateEnded
	f.mu.Unlock()

	if stream != nil {
		return stream.Close()
	}
	return nil
}

func (f *Framer) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stateOrder[f.state] >= stateOrder[StateError] {
		return
	}
	f.state = StateError
	f.stream = nil
}
