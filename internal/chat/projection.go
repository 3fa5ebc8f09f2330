package chat

import (
	"github.com/aikonstudios/aikon/internal/tools"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type MessageStatus string

const (
	StatusStreaming MessageStatus = "streaming"
	StatusSent      MessageStatus = "sent"
	StatusFailed    MessageStatus = "failed"
)

// Attachment references user-provided context for a message (uploaded file,
// image) carried through to the rendered record.
type Attachment struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// DisplayMessage is the user-visible projection of one turn. It has a single
// logical writer (the orchestrator goroutine running the turn); everything
// else sees value copies.
type DisplayMessage struct {
	ID          string        `json:"id"`
	Sender      Sender        `json:"sender"`
	Text        string        `json:"text"`
	Status      MessageStatus `json:"status"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	ToolResult  *tools.Result `json:"tool_result,omitempty"`
}

// Shown while a tool call replaced the whole visible text.
const processingText = "Working on it…"

// Shown when a turn fails before producing anything usable.
const failureText = "Something went wrong. Please try again."

// Project maps a turn (plus the dispatch result, once available) onto the
// next DisplayMessage value. It is a pure function of its inputs: projecting
// the same state twice yields identical output, so re-renders and duplicate
// deliveries are safe.
func Project(t *StreamTurn, result *tools.Result) DisplayMessage {
	msg := DisplayMessage{
		ID:     t.MessageID,
		Sender: SenderAssistant,
	}

	switch t.State() {
	case TurnStreaming:
		msg.Text = t.Visible()
		msg.Status = StatusStreaming

	case TurnToolCallDetected, TurnToolCallExecuting:
		msg.Text = t.Visible()
		if msg.Text == "" {
			msg.Text = processingText
		}
		msg.Status = StatusStreaming
		if p := t.Payload(); p != nil {
			pending := tools.Pending(p.Name)
			msg.ToolResult = &pending
		}

	case TurnComplete:
		msg.Text = t.Visible()
		msg.Status = StatusSent
		if result != nil {
			res := *result
			msg.ToolResult = &res
		}

	case TurnFailed:
		msg.Text = failureText
		msg.Status = StatusFailed
	}

	return msg
}
