package genai

import (
	"strings"
	"testing"
)

func TestCollectorFirstChunkArrivesEarly(t *testing.T) {
	c := NewDeltaCollector(24)
	if got := c.Consume("Hello!"); len(got) == 0 {
		t.Fatal("first chunk should flush at the reduced threshold")
	}
	if c.Emitted() != "Hello!" {
		t.Fatalf("Emitted = %q", c.Emitted())
	}
}

func TestCollectorCoalescesSmallDeltas(t *testing.T) {
	c := NewDeltaCollector(24)
	c.Consume("Hello there, ")

	var flushed []string
	for _, d := range []string{"to", "ken", " by", " to", "ken"} {
		flushed = append(flushed, c.Consume(d)...)
	}
	if len(flushed) != 0 {
		t.Fatalf("short deltas should stay pending, got %v", flushed)
	}

	flushed = c.Consume(" and now enough text to cross the threshold")
	if len(flushed) == 0 {
		t.Fatal("crossing the threshold should flush")
	}
}

func TestCollectorPrefersWordBoundaries(t *testing.T) {
	c := NewDeltaCollector(24)
	c.Consume("primer")
	out := c.Consume(" one two three four five six seven")
	if len(out) == 0 {
		t.Fatal("expected a flush")
	}
	last := out[len(out)-1]
	if !strings.HasSuffix(last, " ") {
		t.Fatalf("segment %q should break after whitespace", last)
	}
}

func TestCollectorFinalizeDrainsPending(t *testing.T) {
	c := NewDeltaCollector(24)
	c.Consume("Hello friend.")
	c.Consume(" tail")
	out := c.Finalize()
	joined := strings.Join(out, "")
	if c.Emitted() != "Hello friend. tail" {
		t.Fatalf("Emitted = %q (final flush %q)", c.Emitted(), joined)
	}
	if got := c.Finalize(); len(got) != 0 {
		t.Fatalf("second Finalize should be empty, got %v", got)
	}
}

func TestCollectorTrimsLeadingWhitespaceOnce(t *testing.T) {
	c := NewDeltaCollector(8)
	out := c.Consume("\n  Hello world")
	if len(out) == 0 {
		t.Fatal("expected a flush")
	}
	if strings.HasPrefix(out[0], " ") || strings.HasPrefix(out[0], "\n") {
		t.Fatalf("leading whitespace should be trimmed, got %q", out[0])
	}
}

func TestCollectorEmittedMatchesInput(t *testing.T) {
	c := NewDeltaCollector(16)
	full := "The quick brown fox jumps over the lazy dog, twice."
	for i := 0; i < len(full); i += 5 {
		end := i + 5
		if end > len(full) {
			end = len(full)
		}
		c.Consume(full[i:end])
	}
	c.Finalize()
	if c.Emitted() != full {
		t.Fatalf("Emitted = %q, want full input", c.Emitted())
	}
}
