package ai

import (
	"bufio"
	"bytes"
	"io"
)

// lineSplitter is a bufio.SplitFunc source like bufio.ScanLines, except that
// a line longer than max is dropped up to its newline instead of failing the
// scan with bufio.ErrTooLong.
type lineSplitter struct {
	max      int
	skipping bool
	onSkip   func()
}

func (s *lineSplitter) split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if s.skipping {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			s.skipping = false
			return i + 1, nil, nil
		}
		return len(data), nil, nil
	}

	advance, token, err = bufio.ScanLines(data, atEOF)
	if advance == 0 && token == nil && err == nil && len(data) >= s.max {
		s.skipping = true
		if s.onSkip != nil {
			s.onSkip()
		}
		return len(data), nil, nil
	}
	return advance, token, err
}

// newLineScanner scans lines of at most max bytes; longer ones are skipped.
func newLineScanner(r io.Reader, max int, onSkip func()) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, max)), max)
	ls := &lineSplitter{max: max, onSkip: onSkip}
	sc.Split(ls.split)
	return sc
}
