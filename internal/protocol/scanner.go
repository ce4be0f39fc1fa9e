package protocol

// Line is one unit of shell output produced by the LineScanner. Complete
// lines keep their trailing newline so they can be forwarded verbatim.
// Partial lines were flushed before their newline arrived (over-long line
// or end of stream) and must never be compared against a sentinel.
type Line struct {
	Text    string
	Partial bool
}

// LineScanner splits the shell's raw output chunks into lines. Newlines
// may arrive split across read chunks; the scanner carries the remainder
// between calls. The per-line buffer is bounded: once a line reaches the
// limit it is flushed early as a partial line instead of growing without
// bound, which loses the ability to sentinel-match that line but caps
// memory on pathological output.
type LineScanner struct {
	max int
	buf []byte
}

// NewLineScanner returns a scanner with the given per-line byte limit.
func NewLineScanner(maxLineBytes int) *LineScanner {
	if maxLineBytes <= 0 {
		maxLineBytes = 64 * 1024
	}
	return &LineScanner{max: maxLineBytes}
}

// Split consumes one raw chunk and returns the lines completed by it.
func (s *LineScanner) Split(chunk []byte) []Line {
	var lines []Line
	for _, ch := range chunk {
		s.buf = append(s.buf, ch)
		if ch == '\n' {
			lines = append(lines, Line{Text: string(s.buf)})
			s.buf = s.buf[:0]
			continue
		}
		if len(s.buf) >= s.max {
			lines = append(lines, Line{Text: string(s.buf), Partial: true})
			s.buf = s.buf[:0]
		}
	}
	return lines
}

// Flush returns any buffered partial line at end of stream.
func (s *LineScanner) Flush() (Line, bool) {
	if len(s.buf) == 0 {
		return Line{}, false
	}
	line := Line{Text: string(s.buf), Partial: true}
	s.buf = s.buf[:0]
	return line, true
}

// Pending reports whether bytes of an incomplete line are buffered.
func (s *LineScanner) Pending() bool {
	return len(s.buf) > 0
}
