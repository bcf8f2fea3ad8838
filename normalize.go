package main

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes characters and drops the combining marks,
// so "Élodie" and "Elodie" compare equal after lowercasing.
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName maps free-text player input to its canonical matching form:
// trimmed, accent-stripped, lowercased. Empty input normalizes to "".
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	stripped, _, err := transform.String(accentStripper, name)
	if err != nil {
		stripped = name
	}

	return strings.ToLower(strings.TrimSpace(stripped))
}
