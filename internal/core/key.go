package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritics so "Société" and "Societe" produce the
// same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// slugify lowercases a name and collapses every run of non-alphanumeric
// characters into a single underscore.
func slugify(name string) string {
	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}
	name = strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	pendingSep := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// ApplicationKey derives the deterministic dedup key for a job record
// from its normalized company name and title. A missing title falls
// back to "unknown" so recurring emails for the same company still
// collapse onto one entry.
func ApplicationKey(company, title string) string {
	c := slugify(company)
	t := slugify(title)
	if t == "" {
		t = "unknown"
	}
	return c + "_" + t
}
