package ai

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrNoBody is wrapped by a TransportError when a successful response
	// carries nothing to read.
	ErrNoBody = errors.New("response has no body")

	// ErrStreamTruncated matches a TruncatedError.
	ErrStreamTruncated = errors.New("stream ended without terminator")

	// ErrStreamConsumed is yielded when an Updates sequence is ranged over twice.
	ErrStreamConsumed = errors.New("stream already consumed")
)

// TransportError is fatal for the request that produced it: the connection
// could not be opened, the upstream answered with a non-2xx status, there was
// no body, or reading the body failed mid-stream.
type TransportError struct {
	Op         string // connect, status, body or read
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		msg := e.Body
		if msg == "" {
			msg = fmt.Sprintf("status %d", e.StatusCode)
		}
		return fmt.Sprintf("openrouter: %s: http %d: %s", e.Op, e.StatusCode, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("openrouter: %s: %v", e.Op, e.Err)
	}
	return "openrouter: " + e.Op
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError describes an event line that could not be understood. It is
// only ever logged; the stream keeps going.
type ProtocolError struct {
	Line string
	Err  error
}

// maxQuotedLine bounds how much of the offending line an error message shows.
const maxQuotedLine = 256

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("openrouter: bad event %q: %v", clip(e.Line, maxQuotedLine), e.Err)
}

// clip shortens s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TruncatedError is returned when the upstream closed the stream before
// sending the terminator. Partial holds everything accumulated until then.
type TruncatedError struct {
	Partial string
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("openrouter: %v after %d bytes", ErrStreamTruncated, len(e.Partial))
}

func (e *TruncatedError) Is(target error) bool { return target == ErrStreamTruncated }
