/*
normalize.go - Location-string normalization shared by the engines

PURPOSE:
  Location fields arrive as free-form display strings from several entry
  surfaces: a reverse geocoder, a place picker ("Acme HQ (12 Main St,
  Springfield)"), or hand-typed text. Before any comparison they are
  reduced to a canonical form so that cosmetic differences never defeat a
  match.

TWO NORMALIZATION LEVELS:
  ExtractAddress: pulls the embedded address out of a "Name (Address)"
                  display string, for comparisons that should run on the
                  address itself.
  CanonicalLocation: lowercases, strips punctuation, collapses whitespace.
                  Used for frequency tallies where "12 Main St." and
                  "12 main st" are the same place.

SEE ALSO:
  - duplicate/: address extraction + fuzzy comparison
  - baseaddr/: canonical form for frequency tallies
*/
package trips

import (
	"strings"
	"unicode"
)

// ExtractAddress returns the embedded address from a "Name (Address)"
// display string. If the string does not end in a parenthesized address,
// it is returned trimmed and unchanged.
func ExtractAddress(location string) string {
	s := strings.TrimSpace(location)
	if !strings.HasSuffix(s, ")") {
		return s
	}
	open := strings.Index(s, "(")
	if open <= 0 {
		return s
	}
	addr := strings.TrimSpace(s[open+1 : len(s)-1])
	if addr == "" {
		return strings.TrimSpace(s[:open])
	}
	return addr
}

// CanonicalLocation reduces a location string to a canonical comparison
// form: lowercase, punctuation stripped, whitespace collapsed to single
// spaces.
func CanonicalLocation(location string) string {
	var b strings.Builder
	b.Grow(len(location))
	for _, r := range strings.ToLower(location) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			// Punctuation becomes a space so "St,Unit 4" still splits
			// into separate tokens.
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeText lowercases and collapses whitespace without touching
// punctuation. Used for purpose comparison, where punctuation can be
// meaningful ("follow-up" vs "followup" are different purposes).
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
