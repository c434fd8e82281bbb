package codes

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackInitial fills a slot when a name yields no usable letter.
const fallbackInitial = 'X'

// Initials derives the two uppercase ASCII letters used in a patient code.
// Diacritics are folded ("Élodie" -> 'E'). A missing last name takes the
// second letter of the first name; missing letters become 'X'.
func Initials(firstName, lastName string) string {
	first := asciiLetters(firstName)
	last := asciiLetters(lastName)

	var out [2]rune
	out[0], out[1] = fallbackInitial, fallbackInitial

	switch {
	case len(first) > 0 && len(last) > 0:
		out[0], out[1] = first[0], last[0]
	case len(first) > 0:
		out[0] = first[0]
		if len(first) > 1 {
			out[1] = first[1]
		}
	case len(last) > 0:
		out[0] = last[0]
		if len(last) > 1 {
			out[1] = last[1]
		}
	}

	return string(out[:])
}

// asciiLetters strips accents and returns the remaining A-Z letters,
// uppercased.
func asciiLetters(s string) []rune {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var letters []rune
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	return letters
}
