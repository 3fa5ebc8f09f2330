package genai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedAdapter emits the given deltas and then returns err.
type scriptedAdapter struct {
	deltas []string
	err    error
	calls  int
}

func (a *scriptedAdapter) StreamResponse(ctx context.Context, req MessageRequest, onDelta DeltaHandler) (MessageResponse, error) {
	a.calls++
	var out strings.Builder
	for _, d := range a.deltas {
		out.WriteString(d)
		if onDelta != nil {
			if err := onDelta(d); err != nil {
				return MessageResponse{}, err
			}
		}
	}
	if a.err != nil {
		return MessageResponse{}, a.err
	}
	return MessageResponse{Text: out.String()}, nil
}

func TestFallbackUsedWhenPrimaryFailsBeforeFirstDelta(t *testing.T) {
	primary := &scriptedAdapter{err: errors.New("backend down")}
	fallback := &scriptedAdapter{deltas: []string{"hello from fallback"}}
	a := NewFallbackAdapter(primary, fallback)

	var got strings.Builder
	resp, err := a.StreamResponse(context.Background(), MessageRequest{InputText: "hi"}, func(d string) error {
		got.WriteString(d)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "hello from fallback" || got.String() != resp.Text {
		t.Fatalf("resp = %+v, deltas = %q", resp, got.String())
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback.calls = %d", fallback.calls)
	}
}

func TestNoFallbackAfterFirstDelta(t *testing.T) {
	primary := &scriptedAdapter{deltas: []string{"partial "}, err: errors.New("mid-stream drop")}
	fallback := &scriptedAdapter{deltas: []string{"should never run"}}
	a := NewFallbackAdapter(primary, fallback)

	_, err := a.StreamResponse(context.Background(), MessageRequest{}, func(string) error { return nil })
	if err == nil {
		t.Fatal("mid-stream failure must surface")
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback ran after text was already forwarded (calls = %d)", fallback.calls)
	}
}

func TestNoFallbackOnCancellation(t *testing.T) {
	primary := &scriptedAdapter{err: context.Canceled}
	fallback := &scriptedAdapter{deltas: []string{"nope"}}
	a := NewFallbackAdapter(primary, fallback)

	_, err := a.StreamResponse(context.Background(), MessageRequest{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback.calls = %d", fallback.calls)
	}
}

func TestFallbackErrorWrapsBoth(t *testing.T) {
	primary := &scriptedAdapter{err: errors.New("primary boom")}
	fallback := &scriptedAdapter{err: errors.New("fallback boom")}
	a := NewFallbackAdapter(primary, fallback)

	_, err := a.StreamResponse(context.Background(), MessageRequest{}, nil)
	if err == nil {
		t.Fatal("expected combined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "primary boom") || !strings.Contains(msg, "fallback boom") {
		t.Fatalf("error = %q", msg)
	}
}
