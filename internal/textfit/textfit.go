// Package textfit truncates strings to a measured width.
package textfit

import "unicode/utf8"

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// Measurer returns the rendered width of s under some fixed font.
type Measurer func(s string) float64

// TruncateToWidth strips trailing runes from text until text+Ellipsis
// measures at most maxWidth, and returns text+Ellipsis. When nothing fits it
// returns Ellipsis alone. It always appends the ellipsis; use FitWidth to
// leave text that already fits untouched.
func TruncateToWidth(measure Measurer, text string, maxWidth float64) string {
	for text != "" && measure(text+Ellipsis) > maxWidth {
		_, size := utf8.DecodeLastRuneInString(text)
		text = text[:len(text)-size]
	}
	return text + Ellipsis
}

// FitWidth returns text unchanged if it fits maxWidth, otherwise the
// truncated form.
func FitWidth(measure Measurer, text string, maxWidth float64) string {
	if measure(text) <= maxWidth {
		return text
	}
	return TruncateToWidth(measure, text, maxWidth)
}
