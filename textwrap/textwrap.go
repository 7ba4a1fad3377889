// Package textwrap breaks text into lines no wider than a character LCD row.
//
// Wrapping is greedy: words are packed onto the current line while they fit,
// separated by a single space. A word longer than the width is split into
// width-sized pieces. Any run of whitespace counts as one word boundary, so
// the original spacing is not preserved.
package textwrap

import (
	"strings"
)

// Wrap returns the lines of text wrapped to width characters.
//
// At least one line is always returned; empty or all-whitespace text yields a
// single empty line. Width is measured in bytes, which matches the display's
// single-byte character set. Wrap panics if width < 1.
func Wrap(text string, width int) []string {
	if width < 1 {
		panic("textwrap: width must be positive")
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
	}

	for _, w := range words {
		// Fill the remainder of the current line before hard splitting, the
		// way a paragraph wrapper breaks a long word.
		if len(w) > width {
			if cur.Len() > 0 {
				if room := width - cur.Len() - 1; room > 0 {
					cur.WriteByte(' ')
					cur.WriteString(w[:room])
					w = w[room:]
				}
				flush()
			}
			for len(w) > width {
				lines = append(lines, w[:width])
				w = w[width:]
			}
			cur.WriteString(w)
			continue
		}

		switch {
		case cur.Len() == 0:
			cur.WriteString(w)
		case cur.Len()+1+len(w) <= width:
			cur.WriteByte(' ')
			cur.WriteString(w)
		default:
			flush()
			cur.WriteString(w)
		}
	}
	if cur.Len() > 0 {
		flush()
	}
	return lines
}
