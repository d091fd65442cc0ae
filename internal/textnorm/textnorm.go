// Package textnorm holds the character-level normalizations shared by the
// date parser and the string cleansing operations.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// foldFullwidth maps full-width alphanumerics, symbols and the ideographic
// space to their narrow forms. Kana are East Asian Wide or Halfwidth, not
// Fullwidth, so they pass through untouched.
var foldFullwidth = runes.Map(func(r rune) rune {
	p := width.LookupRune(r)
	if p.Kind() != width.EastAsianFullwidth {
		return r
	}
	if n := p.Narrow(); n != 0 {
		return n
	}
	return r
})

// FoldWidth converts full-width alphanumeric and symbol characters to
// half-width, leaving kana and kanji alone.
func FoldWidth(s string) string {
	out, _, err := transform.String(foldFullwidth, s)
	if err != nil {
		return s
	}
	return out
}

// StripSpace removes every whitespace rune, including those inside the string.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Normalize is FoldWidth followed by StripSpace.
func Normalize(s string) string {
	return StripSpace(FoldWidth(s))
}
