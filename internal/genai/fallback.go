package genai

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// FallbackAdapter attempts a primary adapter first and falls back on error,
// but only while the primary has not emitted any delta yet: once text has
// been forwarded downstream, a mid-stream failure is terminal (the turn
// fails; retries are user-initiated).
type FallbackAdapter struct {
	primary  Adapter
	fallback Adapter
}

func NewFallbackAdapter(primary, fallback Adapter) *FallbackAdapter {
	return &FallbackAdapter{primary: primary, fallback: fallback}
}

func (a *FallbackAdapter) StreamResponse(
	ctx context.Context,
	req MessageRequest,
	onDelta DeltaHandler,
) (MessageResponse, error) {
	if a == nil || a.primary == nil {
		if a != nil && a.fallback != nil {
			return a.fallback.StreamResponse(ctx, req, onDelta)
		}
		return MessageResponse{}, fmt.Errorf("fallback adapter misconfigured")
	}

	var deltaSeen atomic.Bool
	resp, err := a.primary.StreamResponse(ctx, req, func(delta string) error {
		if delta != "" {
			deltaSeen.Store(true)
		}
		if onDelta == nil {
			return nil
		}
		return onDelta(delta)
	})
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return MessageResponse{}, err
	}
	if a.fallback == nil || deltaSeen.Load() {
		return MessageResponse{}, err
	}

	fallbackResp, fallbackErr := a.fallback.StreamResponse(ctx, req, onDelta)
	if fallbackErr != nil {
		return MessageResponse{}, fmt.Errorf("primary adapter error: %w; fallback adapter error: %v", err, fallbackErr)
	}
	return fallbackResp, nil
}
