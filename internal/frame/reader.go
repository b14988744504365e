package frame

// reader.go provides streaming wrappers applied to every CSV source
// before decoding:
//
//   - BOMSkippingReader: drops the UTF-8 BOM (0xEF 0xBB 0xBF) that
//     Windows tools prepend
//   - UTF8SanitizingReader: replaces invalid UTF-8 sequences with
//     U+FFFD on the fly
//
// WrapReader layers both in the required order. Neither wrapper loads
// the full input into memory.

import (
	"io"
	"unicode/utf8"
)

const sanitizeBufSize = 4096

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM
// if present.
type BOMSkippingReader struct {
	r       io.Reader
	checked bool
	buf     []byte // bytes read during BOM detection, pending delivery
}

// NewBOMSkippingReader creates a BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: r}
}

// Read implements io.Reader. The first call inspects the first three
// bytes and drops them when they are the BOM.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		var head [3]byte
		n, err := io.ReadFull(b.r, head[:])
		if n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
			// BOM found, drop it.
		} else if n > 0 {
			b.buf = append(b.buf, head[:n]...)
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
	}

	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// UTF8SanitizingReader wraps an io.Reader and replaces invalid UTF-8
// sequences with the replacement character (U+FFFD). Multi-byte
// sequences split across read boundaries are held back until the next
// read completes them.
type UTF8SanitizingReader struct {
	r    io.Reader
	in   []byte // fixed read buffer
	tail []byte // possible incomplete sequence carried between reads
	out  []byte // sanitized bytes not yet delivered
	err  error  // deferred error from the underlying reader
}

// NewUTF8SanitizingReader creates a streaming UTF-8 sanitizer.
func NewUTF8SanitizingReader(r io.Reader) *UTF8SanitizingReader {
	return &UTF8SanitizingReader{r: r, in: make([]byte, sanitizeBufSize)}
}

// Read implements io.Reader.
func (s *UTF8SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.out) == 0 {
		if s.err != nil {
			if len(s.tail) > 0 {
				// No more input can complete the held sequence.
				tail := s.tail
				s.tail = nil
				s.sanitize(tail, true)
				continue
			}
			return 0, s.err
		}

		n, err := s.r.Read(s.in)
		if n > 0 {
			chunk := s.in[:n]
			if len(s.tail) > 0 {
				chunk = append(s.tail, chunk...)
				s.tail = nil
			}
			s.sanitize(chunk, false)
		}
		if err != nil {
			s.err = err
		}
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// sanitize appends a sanitized copy of data to the output buffer.
// Unless atEOF, an incomplete multi-byte sequence at the end of data is
// held back for the next read instead of being replaced.
func (s *UTF8SanitizingReader) sanitize(data []byte, atEOF bool) {
	// Fast paths: most CSV data is plain ASCII, and valid UTF-8 needs
	// no rewriting.
	if isASCII(data) || utf8.Valid(data) {
		s.out = append(s.out, data...)
		return
	}

	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && isIncompleteSequence(data[i:]) {
				s.tail = append([]byte(nil), data[i:]...)
				return
			}
			s.out = utf8.AppendRune(s.out, utf8.RuneError)
			i++
		} else {
			s.out = append(s.out, data[i:i+size]...)
			i += size
		}
	}
}

// isASCII reports whether all bytes are below 0x80.
func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// isIncompleteSequence reports whether data is a prefix of a valid
// multi-byte UTF-8 sequence that more input could still complete.
func isIncompleteSequence(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	want := runeLen(data[0])
	if want <= len(data) {
		return false
	}
	for _, b := range data[1:] {
		if b&0xC0 != 0x80 {
			return false
		}
	}
	return true
}

// runeLen returns the byte length a UTF-8 sequence starting with b
// should have, or 0 for a bare continuation byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// WrapReader layers BOM skipping and UTF-8 sanitization over r. BOM
// removal must happen first so the sanitizer never sees it.
func WrapReader(r io.Reader) io.Reader {
	return NewUTF8SanitizingReader(NewBOMSkippingReader(r))
}
