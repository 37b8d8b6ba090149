package search

import "github.com/agnivade/levenshtein"

// Similarity returns an edit similarity between a and b in [0, 100]:
// 100 minus the Levenshtein distance normalized by the longer length.
// Identical strings score 100, disjoint ones approach 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}

	la := len([]rune(a))
	lb := len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	sim := 100 * (1 - float64(dist)/float64(longest))
	if sim < 0 {
		return 0
	}
	return sim
}
