/*
fuzzy.go - Approximate string similarity for location comparison

PURPOSE:
  Location strings for the same physical place rarely agree byte-for-byte
  across entry surfaces. Similarity scores how close two normalized
  strings are without a full edit-distance pass:

    1. Equal strings score 1.0
    2. If one string contains the other, score = shorter / longer length
       ("Main St" inside "12 Main St, Springfield")
    3. Otherwise, score = shared whitespace-delimited tokens divided by
       the larger token count
    4. No overlap at all scores 0

SEE ALSO:
  - matcher.go: Uses Similarity for the location factors
*/
package duplicate

import "strings"

// Similarity returns a score in [0,1] for two strings. Callers are
// expected to normalize case and whitespace first.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	return tokenOverlap(a, b)
}

// tokenOverlap is the shared-token ratio: tokens present in both strings
// divided by the larger token count.
func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(tokensA))
	for _, tok := range tokensA {
		seen[tok] = true
	}
	shared := 0
	counted := make(map[string]bool, len(tokensB))
	for _, tok := range tokensB {
		if seen[tok] && !counted[tok] {
			shared++
			counted[tok] = true
		}
	}

	larger := len(tokensA)
	if len(tokensB) > larger {
		larger = len(tokensB)
	}
	return float64(shared) / float64(larger)
}
