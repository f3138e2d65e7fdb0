package archive

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxBaseLen = 80

// Sanitize turns a display name into a portable file name stem: accents on
// Latin letters are folded, anything outside letters, digits, '-' and '.'
// becomes '_', and runs of '_' collapse.
func Sanitize(s string) string {
	folded := foldLatinAccents(s)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		ok := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.'
		if !ok {
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			lastUnderscore = true
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}
	out := strings.Trim(b.String(), "_.")
	if r := []rune(out); len(r) > maxBaseLen {
		out = strings.TrimRight(string(r[:maxBaseLen]), "_.")
	}
	if out == "" {
		out = "card"
	}
	return out
}

// foldLatinAccents drops combining marks that follow a Latin letter. Marks
// on other scripts carry meaning (dakuten in ガ) and are recomposed.
func foldLatinAccents(s string) string {
	var b strings.Builder
	latin := false
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if latin {
				continue
			}
		} else {
			latin = unicode.Is(unicode.Latin, r)
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// FileName picks the archive name for a card: "<display>_<id>.png". When that
// is taken according to exists, the tier codes are appended, then a counter.
func FileName(display, id string, tierCodes []int, exists func(string) bool) string {
	base := Sanitize(display)
	if id != "" {
		base += "_" + Sanitize(id)
	}
	name := base + ".png"
	if exists == nil || !exists(name) {
		return name
	}

	if len(tierCodes) > 0 {
		codes := make([]string, len(tierCodes))
		for i, c := range tierCodes {
			codes[i] = strconv.Itoa(c)
		}
		base += "_" + strings.Join(codes, "-")
		name = base + ".png"
		if !exists(name) {
			return name
		}
	}
	for n := 2; ; n++ {
		name = base + "_" + strconv.Itoa(n) + ".png"
		if !exists(name) {
			return name
		}
	}
}
