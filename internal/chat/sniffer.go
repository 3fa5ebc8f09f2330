package chat

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ToolCallPayload is a structured instruction extracted from model output.
// Name may be unrecognized; the dispatcher decides how to degrade.
type ToolCallPayload struct {
	Name string
	Args map[string]any
}

const toolCallKey = "tool_call"

// toolProbeMaxLen bounds how long a fresh '{'-tail is withheld from display
// while we wait to see whether it is turning into a tool call.
const toolProbeMaxLen = 64

type SniffVerdict int

const (
	// SniffProse: show Visible as streaming text.
	SniffProse SniffVerdict = iota
	// SniffHold: the text so far looks like an in-progress tool call;
	// show nothing new yet.
	SniffHold
	// SniffToolCall: a complete payload was recognized; Visible carries any
	// prose that preceded it.
	SniffToolCall
)

type SniffResult struct {
	Verdict SniffVerdict
	Visible string
	Payload *ToolCallPayload
}

// Sniff classifies the accumulated text after one append. It never repairs
// JSON: mid-stream, an unparseable object may simply be incomplete.
func Sniff(accumulated string) SniffResult {
	return sniff(accumulated, false)
}

// SniffFinal classifies the complete accumulated text once the stream has
// ended. Near-valid tool-call JSON (code-fenced, trailing commas, single
// quotes) gets one repair attempt; anything still unparseable degrades to
// prose rather than erroring.
func SniffFinal(accumulated string) SniffResult {
	return sniff(accumulated, true)
}

func sniff(accumulated string, final bool) SniffResult {
	trimmed := strings.TrimSpace(accumulated)
	if trimmed == "" {
		return SniffResult{Verdict: SniffProse}
	}

	// Strict pass: the whole turn is one JSON object.
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if p, ok := parseToolObject(trimmed, final); ok {
			return SniffResult{Verdict: SniffToolCall, Payload: p}
		}
	}

	// Fallback pass: first brace-balanced object containing the tool_call
	// key, anywhere in the text (after prose, inside code fences).
	if p, start, ok := scanToolCallObject(accumulated, final); ok {
		visible := strings.TrimSpace(accumulated[:start])
		// Drop a dangling fence opener left in front of the object.
		if strings.Count(visible, "```")%2 == 1 {
			visible = strings.TrimSpace(visible[:strings.LastIndex(visible, "```")])
		}
		return SniffResult{
			Verdict: SniffToolCall,
			Visible: visible,
			Payload: p,
		}
	}

	if final {
		return SniffResult{Verdict: SniffProse, Visible: strings.TrimSpace(accumulated)}
	}

	if looksLikeToolCandidate(trimmed) {
		return SniffResult{Verdict: SniffHold}
	}

	visible := accumulated
	if start, held := suspiciousTailStart(accumulated); held {
		visible = accumulated[:start]
	}
	return SniffResult{Verdict: SniffProse, Visible: visible}
}

// looksLikeToolCandidate reports whether the whole trimmed text is plausibly
// an in-progress tool-call object: it opens with '{', or with a code fence
// whose content opens with '{' (or is still empty).
func looksLikeToolCandidate(trimmed string) bool {
	if strings.HasPrefix(trimmed, "{") {
		return true
	}
	if !strings.HasPrefix(trimmed, "```") {
		return false
	}
	rest := strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		// Fence opener only ("```" or "```json" with no newline yet).
		return true
	}
	rest = strings.TrimSpace(rest)
	return rest == "" || strings.HasPrefix(rest, "{")
}

// suspiciousTailStart finds a trailing unbalanced '{'-object (or open code
// fence) that should be withheld from display: either it already mentions
// the tool_call key, or it is still short enough to be probing.
func suspiciousTailStart(text string) (int, bool) {
	pos := 0
	for {
		rel := strings.IndexByte(text[pos:], '{')
		if rel < 0 {
			break
		}
		start := pos + rel
		end := jsonObjectEndIndex(text[start:])
		if end < 0 {
			tail := text[start:]
			if strings.Contains(tail, `"`+toolCallKey+`"`) || len(tail) <= toolProbeMaxLen {
				return start, true
			}
			return 0, false
		}
		pos = start + end + 1
	}

	// Trailing open code fence: hold it while small, it may wrap a call.
	if strings.Count(text, "```")%2 == 1 {
		start := strings.LastIndex(text, "```")
		tail := text[start:]
		if strings.Contains(tail, `"`+toolCallKey+`"`) || len(tail) <= toolProbeMaxLen {
			return start, true
		}
	}
	return 0, false
}

// scanToolCallObject walks every brace-balanced object in the text and
// returns the first one that parses to a tool-call payload, along with the
// byte offset where the object begins.
func scanToolCallObject(text string, repair bool) (*ToolCallPayload, int, bool) {
	pos := 0
	for {
		rel := strings.IndexByte(text[pos:], '{')
		if rel < 0 {
			return nil, 0, false
		}
		start := pos + rel
		end := jsonObjectEndIndex(text[start:])
		if end < 0 {
			return nil, 0, false
		}
		raw := text[start : start+end+1]
		key := `"` + toolCallKey + `"`
		if repair {
			// Near-JSON may single-quote or bare the key; parse validates.
			key = toolCallKey
		}
		if strings.Contains(raw, key) {
			if p, ok := parseToolObject(raw, repair); ok {
				return p, start, true
			}
		}
		pos = start + end + 1
	}
}

// jsonObjectEndIndex returns the index of the '}' closing the object that
// starts at raw[0], tracking string and escape state, or -1 if the object is
// not yet balanced.
func jsonObjectEndIndex(raw string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseToolObject(raw string, repair bool) (*ToolCallPayload, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		if !repair {
			return nil, false
		}
		fixed, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(fixed), &obj); err != nil {
			return nil, false
		}
	}

	name, ok := obj[toolCallKey].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, false
	}

	args := make(map[string]any, len(obj)-1)
	for k, v := range obj {
		if k == toolCallKey {
			continue
		}
		args[k] = v
	}
	return &ToolCallPayload{Name: strings.TrimSpace(name), Args: args}, true
}
