package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/codetype/internal/typing"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
	newline bool
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// buildStyledRunes renders every stream position with its typing state.
// Whitespace is drawn with visible glyphs; the word under the cursor is
// highlighted.
func buildStyledRunes(stream *typing.Stream, snap typing.Snapshot) []styledRune {
	cursorIndex := -1
	if !snap.Completed && snap.CursorIndex < stream.Len() {
		cursorIndex = snap.CursorIndex
	}
	words := findWords(stream)
	currentWord := wordForCursor(words, cursorIndex)

	out := make([]styledRune, 0, stream.Len())
	for i := 0; i < stream.Len(); i++ {
		target, _ := stream.At(i)
		glyph := stream.Glyph(i)
		style := pendingStyle
		switch {
		case i < snap.CursorIndex && snap.IsIncorrect(i):
			style = incorrectStyle
		case i < snap.CursorIndex:
			style = correctStyle
		case isBlank(target):
			style = whitespaceStyle
		case currentWord != nil && i >= currentWord.start && i < currentWord.end:
			style = currentWordStyle
		}
		if i == cursorIndex {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:       style.Render(glyph),
			width:   runewidth.StringWidth(glyph),
			isSpace: target == ' ' || target == '\t',
			newline: target == '\n',
		})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(stream *typing.Stream) []wordRange {
	var words []wordRange
	start := -1
	for i := 0; i < stream.Len(); i++ {
		r, _ := stream.At(i)
		if isBlank(r) {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: stream.Len()})
	}
	return words
}

func wordForCursor(words []wordRange, cursorIndex int) *wordRange {
	if len(words) == 0 || cursorIndex < 0 {
		return nil
	}
	for i, w := range words {
		if cursorIndex < w.end {
			if cursorIndex >= w.start {
				return &words[i]
			}
			return nil
		}
	}
	return nil
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
		if item.newline {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// wrapStyledRunes breaks lines after every newline glyph and soft-wraps
// lines wider than width at the last space, or mid-word when there is none.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, width)
	lineWidth := 0
	lastSpaceIdx := -1

	flush := func(items []styledRune) {
		for _, item := range items {
			out.WriteString(item.s)
		}
		out.WriteByte('\n')
	}

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				flush(line[:lastSpaceIdx+1])
				line = append(line[:0:0], line[lastSpaceIdx+1:]...)
			} else {
				flush(line)
				line = line[:0]
			}
			lineWidth = lineWidthOf(line)
			lastSpaceIdx = lastSpaceIndex(line)
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		if item.newline {
			flush(line)
			line = line[:0]
			lineWidth = 0
			lastSpaceIdx = -1
		}
		i++
	}
	for _, item := range line {
		out.WriteString(item.s)
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
