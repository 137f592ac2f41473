package telemetry

import "bytes"

// DefaultMaxLineBytes caps one buffered record.
const DefaultMaxLineBytes = 64 * 1024

// Framer splits a byte stream into newline-terminated records and carries an
// incomplete trailing fragment across Feed calls. A Framer is owned by one
// reader and is not safe for concurrent use.
type Framer struct {
	max        int
	buf        []byte
	discarding bool
}

// NewFramer returns a framer; max <= 0 selects DefaultMaxLineBytes.
func NewFramer(max int) *Framer {
	if max <= 0 {
		max = DefaultMaxLineBytes
	}
	return &Framer{max: max}
}

// Feed appends p and returns every complete non-blank line it closes, without
// the terminator or a trailing carriage return. When a line grows past the
// limit it is discarded up to the next terminator and ErrLineTooLong is
// returned alongside any lines that did complete.
func (f *Framer) Feed(p []byte) ([][]byte, error) {
	var (
		lines    [][]byte
		overflow bool
	)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			if f.discarding {
				break
			}
			f.buf = append(f.buf, p...)
			if len(f.buf) > f.max {
				f.buf = f.buf[:0]
				f.discarding = true
				overflow = true
			}
			break
		}

		seg := p[:i]
		p = p[i+1:]
		if f.discarding {
			f.discarding = false
			continue
		}
		if len(f.buf)+len(seg) > f.max {
			f.buf = f.buf[:0]
			overflow = true
			continue
		}

		line := make([]byte, 0, len(f.buf)+len(seg))
		line = append(line, f.buf...)
		line = append(line, seg...)
		f.buf = f.buf[:0]

		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	if overflow {
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// Pending reports how many bytes of an unterminated fragment are buffered.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset drops any buffered fragment.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.discarding = false
}
