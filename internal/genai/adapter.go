package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MessageRequest is the normalized request sent to the generative backend.
type MessageRequest struct {
	UserID            string   `json:"user_id"`
	SessionID         string   `json:"session_id"`
	TurnID            string   `json:"turn_id"`
	InputText         string   `json:"input_text"`
	HistoryContext    []string `json:"history_context,omitempty"`
	SystemInstruction string   `json:"system_instruction,omitempty"`
	PersonaID         string   `json:"persona_id,omitempty"`
}

// MessageResponse is the final response after streaming deltas.
type MessageResponse struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments. Returning an error aborts
// the stream; the adapter propagates it unchanged.
type DeltaHandler func(delta string) error

// Adapter bridges the chat service with a generative model backend.
type Adapter interface {
	StreamResponse(ctx context.Context, req MessageRequest, onDelta DeltaHandler) (MessageResponse, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	HTTPURL string
	APIKey  string
	Model   string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return NewMockAdapter(), nil
		}
		// Mock fallback keeps the service conversational when the backend
		// is down, but only when the primary produced nothing yet.
		return NewFallbackAdapter(NewHTTPAdapter(cfg.HTTPURL, cfg.APIKey, cfg.Model), NewMockAdapter()), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("genai HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL, cfg.APIKey, cfg.Model), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported genai adapter mode %q", cfg.Mode)
	}
}
