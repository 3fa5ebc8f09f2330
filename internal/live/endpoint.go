package live

import "context"

type EventType string

const (
	EventAudio EventType = "audio"
	EventText  EventType = "text"
	EventEnded EventType = "ended"
	EventError EventType = "error"
)

// Event is a downstream message from a live voice endpoint.
type Event struct {
	Type        EventType
	AudioBase64 string
	SampleRate  int
	Text        string
	Code        string
	Detail      string
	Retryable   bool
}

// Stream is an open upstream connection to a live voice endpoint.
type Stream interface {
	SendAudio(ctx context.Context, pcm []byte, sampleRate int) error
	Close() error
}

// Endpoint establishes live voice streams. The returned event channel is
// closed when the stream ends, after any terminal error event.
type Endpoint interface {
	Connect(ctx context.Context, sessionID, personaID string) (Stream, <-chan Event, error)
}
