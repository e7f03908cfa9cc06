package ai

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// newTextReader decodes r as a UTF-8 stream. A multi-byte sequence cut by a
// read boundary is held back until the rest arrives; only bytes that are
// invalid for good become U+FFFD.
func newTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8.NewDecoder())
}
