package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientUserMessage MessageType = "client_user_message"
	TypeClientControl     MessageType = "client_control"
	TypeClientAudioChunk  MessageType = "client_audio_chunk"

	TypeAssistantMessageDelta MessageType = "assistant_message_delta"
	TypeAssistantMessage      MessageType = "assistant_message"
	TypeAssistantTurnEnd      MessageType = "assistant_turn_end"
	TypeAssistantAudio        MessageType = "assistant_audio_chunk"
	TypeVoiceState            MessageType = "voice_state"
	TypeSystemEvent           MessageType = "system_event"
	TypeErrorEvent            MessageType = "error_event"
)

// Control actions accepted in ClientControl.
const (
	ActionCancelTurn = "cancel_turn"
	ActionEnd        = "end"
	ActionMute       = "mute"
	ActionUnmute     = "unmute"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientAttachment struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

type ClientUserMessage struct {
	Type        MessageType        `json:"type"`
	SessionID   string             `json:"session_id"`
	Text        string             `json:"text"`
	PersonaID   string             `json:"persona_id,omitempty"`
	Attachments []ClientAttachment `json:"attachments,omitempty"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type ClientAudioChunk struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	Seq         int         `json:"seq"`
	PCM16Base64 string      `json:"pcm16_base64"`
	SampleRate  int         `json:"sample_rate"`
	TSMs        int64       `json:"ts_ms"`
}

type AssistantMessageDelta struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	MessageID string      `json:"message_id"`
	TextDelta string      `json:"text_delta"`
}

// AssistantMessage is a full snapshot of one rendered message. ToolResult is
// tool-specific (weather card, image reference, email receipt, launch
// descriptor) and is forwarded as-is.
type AssistantMessage struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	MessageID  string      `json:"message_id"`
	Sender     string      `json:"sender"`
	Text       string      `json:"text"`
	Status     string      `json:"status"`
	ToolResult any         `json:"tool_result,omitempty"`
}

type AssistantTurnEnd struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	MessageID string      `json:"message_id"`
	Reason    string      `json:"reason"`
}

type AssistantAudioChunk struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	Seq         int         `json:"seq"`
	Format      string      `json:"format"`
	AudioBase64 string      `json:"audio_base64"`
	StartAtMs   int64       `json:"start_at_ms"`
}

type VoiceState struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	State     string      `json:"state"`
	Detail    string      `json:"detail,omitempty"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientUserMessage:
		var msg ClientUserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid client_user_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	case TypeClientAudioChunk:
		var msg ClientAudioChunk
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.PCM16Base64 == "" || msg.SampleRate <= 0 {
			return nil, errors.New("invalid client_audio_chunk")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
