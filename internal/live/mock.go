package live

import (
	"context"
	"sync"

	"github.com/aikonstudios/aikon/internal/audio"
)

// MockEndpoint is a loopback endpoint used when no live provider is
// configured. Every Nth inbound frame is echoed back as synthesized audio.
type MockEndpoint struct {
	EchoEvery int
}

func NewMockEndpoint() *MockEndpoint { return &MockEndpoint{EchoEvery: 4} }

func (e *MockEndpoint) Connect(_ context.Context, _ string, _ string) (Stream, <-chan Event, error) {
	every := e.EchoEvery
	if every <= 0 {
		every = 4
	}
	events := make(chan Event, 64)
	return &mockStream{events: events, echoEvery: every}, events, nil
}

type mockStream struct {
	mu        sync.Mutex
	events    chan Event
	echoEvery int
	frames    int
	closed    bool
}

func (s *mockStream) SendAudio(_ context.Context, pcm []byte, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.frames++
	if s.frames%s.echoEvery == 0 {
		s.events <- Event{
			Type:        EventAudio,
			AudioBase64: audio.EncodeFrame(pcm),
			SampleRate:  sampleRate,
		}
	}
	return nil
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.events <- Event{Type: EventEnded}
	close(s.events)
	return nil
}
