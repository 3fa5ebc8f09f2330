package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aikonstudios/aikon/internal/audio"
	"github.com/aikonstudios/aikon/internal/reliability"
)

type WSEndpointConfig struct {
	BaseURL string
	APIKey  string
}

// WSEndpoint speaks the realtime voice websocket protocol of the upstream
// provider: JSON frames in both directions with base64 PCM payloads.
type WSEndpoint struct {
	cfg WSEndpointConfig
}

func NewWSEndpoint(cfg WSEndpointConfig) *WSEndpoint {
	return &WSEndpoint{cfg: cfg}
}

func (e *WSEndpoint) Connect(ctx context.Context, sessionID, personaID string) (Stream, <-chan Event, error) {
	u, err := url.Parse(strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/live/stream")
	if err != nil {
		return nil, nil, err
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	if personaID != "" {
		q.Set("persona_id", personaID)
	}
	u.RawQuery = q.Encode()

	headers := http.Header{}
	if e.cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, nil, fmt.Errorf("dial live websocket: %w", err)
	}

	events := make(chan Event, 256)
	s := &wsStream{conn: conn, events: events, done: make(chan struct{})}
	go s.readLoop()
	return s, events, nil
}

type wsStream struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	events    chan Event
	done      chan struct{}
}

func (s *wsStream) SendAudio(_ context.Context, pcm []byte, sampleRate int) error {
	payload := map[string]any{
		"message_type":  "input_audio_chunk",
		"audio_base_64": audio.EncodeFrame(pcm),
		"sample_rate":   sampleRate,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

// readLoop owns the events channel: it is the only goroutine that closes it,
// so Close may run while a send is still blocked without panicking.
func (s *wsStream) readLoop() {
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		messageType := asString(raw["message_type"])
		switch messageType {
		case "output_audio_chunk":
			if !s.emit(Event{
				Type:        EventAudio,
				AudioBase64: asString(raw["audio_base_64"]),
				SampleRate:  asInt(raw["sample_rate"]),
			}) {
				return
			}
		case "transcript":
			if !s.emit(Event{Type: EventText, Text: asString(raw["text"])}) {
				return
			}
		case "session_ended":
			s.emit(Event{Type: EventEnded})
			return
		case "", "session_started", "input_audio_chunk":
			// control acks, ignore
		default:
			if !s.emit(Event{
				Type:      EventError,
				Code:      messageType,
				Detail:    asString(raw["error"]),
				Retryable: reliability.IsRetryableRealtimeMessageType(messageType),
			}) {
				return
			}
		}
	}
}

// emit delivers an event unless the stream was closed while the consumer
// stopped draining. Reports whether readLoop should keep going.
func (s *wsStream) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *wsStream) Close() error {
	var retErr error
	s.closeOnce.Do(func() {
		close(s.done)
		retErr = s.conn.Close()
	})
	return retErr
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	default:
		return 0
	}
}
