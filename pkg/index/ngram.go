package index

import "sort"

// DefaultMaxCandidates bounds fuzzy candidate lists when callers pass no
// tighter limit.
const DefaultMaxCandidates = 400

// minOverlapLength is the token length at which two shared n-grams are
// required instead of one. Short tokens cannot afford that bar.
const minOverlapLength = 6

// NGramIndex maps character trigrams to the vocabulary tokens containing
// them. Tokens shorter than three characters are indexed by their bigrams;
// single-character tokens map to themselves. The structure only prunes the
// candidate space for fuzzy matching; ranking happens elsewhere.
type NGramIndex struct {
	grams map[string][]string
}

// buildNGramIndex indexes the vocabulary. Tokens are inserted in sorted
// order so candidate ties resolve the same way on every build.
func buildNGramIndex(vocabulary []string) *NGramIndex {
	sort.Strings(vocabulary)

	idx := &NGramIndex{grams: make(map[string][]string)}
	for _, token := range vocabulary {
		for _, gram := range ngramSet(token) {
			idx.grams[gram] = append(idx.grams[gram], token)
		}
	}
	return idx
}

// Candidates returns up to max tokens sharing n-grams with token, ordered
// by shared-gram count descending; ties keep insertion order. Tokens of
// length six or more must share at least two grams, shorter ones one.
func (n *NGramIndex) Candidates(token string, max int) []string {
	if max <= 0 {
		max = DefaultMaxCandidates
	}

	counts := make(map[string]int)
	var order []string

	for _, gram := range ngramSet(token) {
		for _, candidate := range n.grams[gram] {
			if counts[candidate] == 0 {
				order = append(order, candidate)
			}
			counts[candidate]++
		}
	}

	minOverlap := 1
	if len([]rune(token)) >= minOverlapLength {
		minOverlap = 2
	}

	kept := order[:0]
	for _, candidate := range order {
		if counts[candidate] >= minOverlap {
			kept = append(kept, candidate)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return counts[kept[i]] > counts[kept[j]]
	})

	if len(kept) > max {
		kept = kept[:max]
	}
	return kept
}

// ngramSet returns the distinct grams of token: trigrams normally,
// bigrams below length three, the token itself below length two.
func ngramSet(token string) []string {
	runes := []rune(token)

	var size int
	switch {
	case len(runes) < 2:
		return []string{token}
	case len(runes) < 3:
		size = 2
	default:
		size = 3
	}

	seen := make(map[string]bool)
	grams := make([]string, 0, len(runes))
	for i := 0; i+size <= len(runes); i++ {
		gram := string(runes[i : i+size])
		if seen[gram] {
			continue
		}
		seen[gram] = true
		grams = append(grams, gram)
	}
	return grams
}
