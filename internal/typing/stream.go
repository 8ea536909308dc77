// Package typing implements the typing-session engine: the character stream,
// the session state machine, metric calculation, key classification and
// completion notification.
package typing

// Stream is the immutable, indexed target text of a lesson.
type Stream struct {
	chars []rune
}

// NewStream splits text into runes. Code snippets are ASCII-dominated, so a
// rune is treated as one visual character.
func NewStream(text string) *Stream {
	return &Stream{chars: []rune(text)}
}

// Len returns the number of characters in the stream.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chars)
}

// At returns the character at index i.
func (s *Stream) At(i int) (rune, bool) {
	if s == nil || i < 0 || i >= len(s.chars) {
		return 0, false
	}
	return s.chars[i], true
}

// Text returns the stream as a string.
func (s *Stream) Text() string {
	if s == nil {
		return ""
	}
	return string(s.chars)
}

// Glyph returns the display form of the character at index i.
func (s *Stream) Glyph(i int) string {
	r, ok := s.At(i)
	if !ok {
		return ""
	}
	return GlyphFor(r)
}

// GlyphFor maps whitespace that would be invisible to a visible marker.
func GlyphFor(r rune) string {
	switch r {
	case '\n':
		return "↵"
	case '\t':
		return "→"
	case ' ':
		return "·"
	default:
		return string(r)
	}
}
