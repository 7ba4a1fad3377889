package hd44780

import (
	"fmt"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The character generator ROM matches ASCII between space and tilde. Codes
// above differ between ROM variants and codes below select CGRAM glyphs.
const (
	firstChar = 0x20
	lastChar  = 0x7E
)

func supported(c rune) bool {
	return c >= firstChar && c <= lastChar
}

// checkLine reports why s cannot be shown as one row, or nil.
func (d *Dev) checkLine(s string) error {
	if len(s) > d.cols {
		return fmt.Errorf("%w: %q is %d characters, display has %d columns", ErrLineTooLong, s, len(s), d.cols)
	}
	for _, c := range s {
		if !supported(c) {
			return fmt.Errorf("%w: %q in %q", ErrUnsupportedChar, c, s)
		}
	}
	return nil
}

// sanitizer decomposes accented letters so the base letter survives, turns
// any whitespace into a space and drops everything the display cannot show.
// Transformers keep state, so each call gets its own chain.
func sanitizer() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool { return !supported(r) })),
	)
}

// Sanitize reduces s to characters the display can show, for example
// "Crème brûlée" becomes "Creme brulee".
func Sanitize(s string) string {
	out, _, err := transform.String(sanitizer(), s)
	if err != nil {
		return ""
	}
	return out
}
