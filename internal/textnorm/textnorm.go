// Package textnorm folds free text into the accent-free lower-case form used
// for search matching and slug generation.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Some letters carry no combining mark under NFKD and need an explicit ASCII form.
var letterReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "ø", "o", "Ø", "O",
	"œ", "oe", "Œ", "OE", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
)

// Fold lower-cases s and strips diacritics ("Cátegory" -> "category").
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, letterReplacer.Replace(s))
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Words replaces every rune that is neither a letter nor a digit with a space
// and returns the remaining space-separated words of the folded input.
// Underscores count as separators.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Slugify turns a display name into a URL slug: folded, alphanumerics kept,
// runs of anything else collapsed into single hyphens.
func Slugify(s string) string {
	return strings.Join(Words(s), "-")
}
