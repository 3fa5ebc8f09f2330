package chat

import (
	"time"

	"github.com/google/uuid"
)

// TurnState tracks a model-generation turn through its lifecycle.
// Transitions are forward-only; Advance ignores attempts to move backward.
type TurnState string

const (
	TurnStreaming         TurnState = "streaming"
	TurnToolCallDetected  TurnState = "tool_call_detected"
	TurnToolCallExecuting TurnState = "tool_call_executing"
	TurnComplete          TurnState = "complete"
	TurnFailed            TurnState = "failed"
)

var turnStateOrder = map[TurnState]int{
	TurnStreaming:         0,
	TurnToolCallDetected:  1,
	TurnToolCallExecuting: 2,
	TurnComplete:          3,
	TurnFailed:            3,
}

// StreamTurn is one assistant generation in progress: the accumulated model
// text plus the lifecycle state. It is confined to the goroutine running the
// turn; projection output is what crosses goroutine boundaries.
type StreamTurn struct {
	MessageID  string
	SessionID  string
	UserID     string
	Generation int64

	state       TurnState
	accumulated string
	visible     string
	payload     *ToolCallPayload
	errDetail   string
	startedAt   time.Time
}

func NewStreamTurn(sessionID, userID string, generation int64) *StreamTurn {
	return &StreamTurn{
		MessageID:  uuid.NewString(),
		SessionID:  sessionID,
		UserID:     userID,
		Generation: generation,
		state:      TurnStreaming,
		startedAt:  time.Now().UTC(),
	}
}

// Append concatenates one stream chunk and returns the full accumulated text.
// Empty chunks are a no-op; accumulation never fails.
func (t *StreamTurn) Append(chunk string) string {
	if chunk == "" {
		return t.accumulated
	}
	if t.state == TurnStreaming {
		t.accumulated += chunk
	}
	return t.accumulated
}

func (t *StreamTurn) Accumulated() string { return t.accumulated }

func (t *StreamTurn) State() TurnState { return t.state }

func (t *StreamTurn) StartedAt() time.Time { return t.startedAt }

// Advance moves the turn forward. Backward transitions are rejected so a
// late-arriving event can never resurrect a finished turn.
func (t *StreamTurn) Advance(next TurnState) bool {
	cur, ok := turnStateOrder[t.state]
	if !ok {
		return false
	}
	nxt, ok := turnStateOrder[next]
	if !ok {
		return false
	}
	if t.Done() || nxt < cur {
		return false
	}
	t.state = next
	return true
}

func (t *StreamTurn) Done() bool {
	return t.state == TurnComplete || t.state == TurnFailed
}

// SetVisible records the user-facing text for the current turn state.
// Visible text only grows while streaming; tool detection replaces it.
func (t *StreamTurn) SetVisible(text string) {
	t.visible = text
}

func (t *StreamTurn) Visible() string { return t.visible }

func (t *StreamTurn) SetPayload(p *ToolCallPayload) {
	if t.payload == nil {
		t.payload = p
	}
}

func (t *StreamTurn) Payload() *ToolCallPayload { return t.payload }

// Fail marks the turn failed with a detail string for the error event.
func (t *StreamTurn) Fail(detail string) {
	if t.Done() {
		return
	}
	t.state = TurnFailed
	t.errDetail = detail
}

func (t *StreamTurn) FailureDetail() string { return t.errDetail }
