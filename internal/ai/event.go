package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// EventKind classifies a decoded event line.
type EventKind int

const (
	EventToken EventKind = iota + 1
	EventTerminator
	EventUnparseable
)

const (
	dataPrefix      = "data:"
	terminatorToken = "[DONE]"
)

// StreamEvent is one record decoded from a qualifying "data:" line.
// Text is set for EventToken and may be empty; Raw and Err are set for
// EventUnparseable.
type StreamEvent struct {
	Kind EventKind
	Text string
	Raw  string
	Err  error
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ParseLine decodes a single line of the event stream. ok is false for lines
// that carry no event: blanks, comments, and anything not prefixed by "data:".
func ParseLine(line string) (ev StreamEvent, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return StreamEvent{}, false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == terminatorToken {
		return StreamEvent{Kind: EventTerminator}, true
	}

	var decoded streamChunk
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		return StreamEvent{Kind: EventUnparseable, Raw: data, Err: err}, true
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return StreamEvent{Kind: EventUnparseable, Raw: data, Err: errors.New(decoded.Error.Message)}, true
	}
	if len(decoded.Choices) == 0 {
		return StreamEvent{Kind: EventToken}, true
	}
	return StreamEvent{Kind: EventToken, Text: decoded.Choices[0].Delta.Content}, true
}
