package genai

import "strings"

const defaultStreamMinChars = 24

// DeltaCollector coalesces token-sized streamed deltas into phrase-ish
// chunks so the websocket and the client's typewriter rendering don't
// receive a firehose of one-token fragments.
type DeltaCollector struct {
	minChars int
	firstMin int

	pending string
	emitted string
}

func NewDeltaCollector(minChars int) *DeltaCollector {
	if minChars <= 0 {
		minChars = defaultStreamMinChars
	}
	// First emission should come as soon as there is "something" so the UI
	// feels responsive; later chunks can be larger for smoother flow.
	firstMin := minChars / 4
	if firstMin < 2 {
		firstMin = 2
	}
	return &DeltaCollector{
		minChars: minChars,
		firstMin: firstMin,
	}
}

func (c *DeltaCollector) Consume(delta string) []string {
	if delta == "" {
		return nil
	}
	c.pending += delta
	return c.flush(false)
}

func (c *DeltaCollector) Finalize() []string {
	return c.flush(true)
}

// Emitted returns everything flushed so far, in order.
func (c *DeltaCollector) Emitted() string { return c.emitted }

func (c *DeltaCollector) flush(force bool) []string {
	var out []string
	for {
		threshold := c.minChars
		if c.emitted == "" {
			threshold = c.firstMin
		}

		segment, rest, ok := nextStreamSegment(c.pending, threshold, force)
		if !ok {
			break
		}
		c.pending = rest
		if c.emitted == "" && len(out) == 0 {
			segment = strings.TrimLeft(segment, " \t\r\n")
		}
		if segment == "" {
			continue
		}
		out = append(out, segment)
		c.emitted += segment
	}
	return out
}

// nextStreamSegment slices one emit-worthy segment off pending. Segments
// prefer to break after whitespace so words are not split mid-token.
func nextStreamSegment(pending string, threshold int, force bool) (segment, rest string, ok bool) {
	if pending == "" {
		return "", "", false
	}
	if force {
		return pending, "", true
	}
	if len(pending) < threshold {
		return "", pending, false
	}

	cut := len(pending)
	if idx := strings.LastIndexAny(pending, " \t\n"); idx >= threshold/2 {
		cut = idx + 1
	}
	return pending[:cut], pending[cut:], true
}
