package core

// streaming.go provides streaming readers that clean an uploaded CSV before
// it reaches the parser:
//
//   - BOMSkippingReader: Removes the UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - StreamingUTF8Sanitizer: Replaces invalid UTF-8 bytes with '?'
//
// Use WrapForImport to apply both in the correct order.

import (
	"io"
	"unicode/utf8"
)

// StreamingUTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes
// with '?' on the fly. A multi-byte sequence split across reads is carried
// over to the next call.
type StreamingUTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
	// out holds sanitized bytes that did not fit a short caller buffer.
	out []byte
	err error
}

// NewStreamingUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(s.out) > 0 {
		return s.drain(p), s.takeErr()
	}
	if len(p) < utf8.UTFMax {
		return s.readShort(p)
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = append(s.pending[:0], s.pending[offset:]...)
		if len(s.pending) > 0 {
			return offset, nil
		}
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}

	written := s.sanitize(p[:n], err == io.EOF)
	if written == 0 && err == nil {
		// Everything was held back as pending; ask for more.
		return s.Read(p)
	}
	return written, err
}

// readShort sanitizes into a rune-sized scratch buffer so a split sequence
// survives a caller buffer too small to hold it.
func (s *StreamingUTF8Sanitizer) readShort(p []byte) (int, error) {
	var scratch [utf8.UTFMax]byte
	n, err := s.Read(scratch[:])
	if n == 0 {
		return 0, err
	}
	s.out = append(s.out[:0], scratch[:n]...)
	s.err = err
	return s.drain(p), s.takeErr()
}

func (s *StreamingUTF8Sanitizer) drain(p []byte) int {
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n
}

// takeErr hands back a deferred read error once out is empty.
func (s *StreamingUTF8Sanitizer) takeErr() error {
	if len(s.out) > 0 {
		return nil
	}
	err := s.err
	s.err = nil
	return err
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// When atEOF is false a trailing incomplete sequence is stashed in pending.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	buf     [3]byte
	held    []byte
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. The first call inspects up to three bytes.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		if n == 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF {
			r.held = nil
		} else {
			r.held = r.buf[:n]
		}

		if len(r.held) == 0 && err == io.EOF {
			return 0, io.EOF
		}
	}

	if len(r.held) > 0 {
		n := copy(p, r.held)
		r.held = r.held[n:]
		return n, nil
	}

	return r.reader.Read(p)
}

// WrapForImport strips a BOM and then sanitizes UTF-8.
// BOM removal must come first so the sanitizer never sees it.
func WrapForImport(r io.Reader) io.Reader {
	return NewStreamingUTF8Sanitizer(NewBOMSkippingReader(r))
}
