package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no backend is
// configured. A few input shapes produce tool-call payloads so the whole
// dispatch pipeline can be exercised offline.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) StreamResponse(
	ctx context.Context,
	req MessageRequest,
	onDelta DeltaHandler,
) (MessageResponse, error) {
	select {
	case <-ctx.Done():
		return MessageResponse{}, ctx.Err()
	default:
	}

	text := buildMockReply(req)
	if onDelta != nil && text != "" {
		// Stream in two fragments so consumers see true incremental input.
		split := len(text) / 2
		for _, part := range []string{text[:split], text[split:]} {
			if part == "" {
				continue
			}
			if err := onDelta(part); err != nil {
				return MessageResponse{}, err
			}
		}
	}
	return MessageResponse{Text: text}, nil
}

func buildMockReply(req MessageRequest) string {
	input := strings.TrimSpace(req.InputText)
	if input == "" {
		return "I'm here. What would you like to make today?"
	}

	lower := strings.ToLower(input)
	switch {
	case strings.HasPrefix(lower, "weather in "):
		return mockToolCall("fetch_weather", map[string]string{"location": strings.TrimSpace(input[len("weather in "):])})
	case strings.HasPrefix(lower, "draw "), strings.HasPrefix(lower, "imagine "):
		return mockToolCall("generate_image", map[string]string{"prompt": input})
	}

	if len(req.HistoryContext) > 0 {
		last := strings.TrimSpace(req.HistoryContext[len(req.HistoryContext)-1])
		if last != "" {
			return fmt.Sprintf("You said: %s\nEarlier we talked about: %s", input, last)
		}
	}
	return fmt.Sprintf("You said: %s", input)
}

func mockToolCall(name string, args map[string]string) string {
	obj := map[string]any{"tool_call": name}
	for k, v := range args {
		obj[k] = v
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	return string(raw)
}
