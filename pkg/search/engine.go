// Package search implements the ranked keyword query engine on top of the
// inverted index: synonym expansion, fuzzy matching with a per-query
// budget, and field-weighted TF-IDF scoring.
package search

import (
	"sort"
	"strings"

	"github.com/lukapolovic/moviesearch/pkg/index"
	"github.com/lukapolovic/moviesearch/pkg/text"
)

// FieldWeights holds the per-field scoring weights. Fields outside the
// map weigh zero.
var FieldWeights = map[string]float64{
	"title":       5.0,
	"cast":        4.0,
	"director":    3.0,
	"genres":      3.0,
	"description": 1.0,
	"year":        0.5,
	"rating":      0.1,
}

// Fuzzy matching guardrails.
const (
	// FuzzyMinTokenLen is the shortest token eligible for fuzzy matching.
	FuzzyMinTokenLen = 4

	// FuzzyMaxTokensPerQuery caps how many query tokens may take the
	// fuzzy path. The budget is spent whenever the path is taken, even
	// when it produces no matches.
	FuzzyMaxTokensPerQuery = 3

	// FuzzyScoreThreshold is the minimum edit similarity (0-100) for a
	// fuzzy candidate to count as a match.
	FuzzyScoreThreshold = 80

	// fuzzyCandidateLimit bounds the trigram pre-filter per token.
	fuzzyCandidateLimit = 300

	// fuzzyMatchLimit keeps only the best few candidates after ranking.
	fuzzyMatchLimit = 3

	// FuzzyNonTitlePenalty discounts fuzzy contributions outside the
	// title field; FuzzyDescriptionPenalty applies to descriptions
	// instead. Title matches go unpenalized.
	FuzzyNonTitlePenalty    = 0.6
	FuzzyDescriptionPenalty = 0.8
)

// Synonym expansion guardrails.
const (
	// SynMaxPerBaseToken caps how many expansion tokens one base token
	// may contribute.
	SynMaxPerBaseToken = 5

	// SynSkipShortTokensLen: tokens this short or shorter skip synonym
	// lookup entirely.
	SynSkipShortTokensLen = 3
)

// Explanation records one scoring contribution for debug output. Token is
// the query-side token, not the (possibly fuzzy) index token it matched.
type Explanation struct {
	Token        string  `json:"token"`
	Field        string  `json:"field"`
	Weight       float64 `json:"weight"`
	TFByField    int     `json:"tf_by_field"`
	IDF          float64 `json:"idf"`
	Similarity   float64 `json:"similarity"`
	Contribution float64 `json:"contribution"`
}

// Result is one scored document, rendered from the stored record.
type Result struct {
	DocID        int
	Title        string
	Director     string
	Cast         []string
	Year         int
	Rating       float64
	Score        float64
	Explanations []Explanation
}

// Engine executes queries against one index.
type Engine struct {
	index     *index.Index
	tokenizer *text.Tokenizer
	synonyms  text.SynonymSource
}

// NewEngine creates a query engine over idx. The synonym source may be
// nil, which disables expansion.
func NewEngine(idx *index.Index, tokenizer *text.Tokenizer, synonyms text.SynonymSource) *Engine {
	return &Engine{
		index:     idx,
		tokenizer: tokenizer,
		synonyms:  synonyms,
	}
}

// tokenMatch pairs an index token with its similarity to the query token:
// 1.0 for exact hits, below for fuzzy ones.
type tokenMatch struct {
	token      string
	similarity float64
}

// Search runs a bag-of-words query and returns documents ordered by
// descending score, ascending document id on ties. With debug set, each
// result carries its scoring explanations.
func (e *Engine) Search(query string, debug bool) []Result {
	if query == "" {
		return nil
	}

	tokens := e.tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	baseTokens, baseSet := unique(tokens)
	expanded := e.expandSynonyms(baseTokens)

	scores := make(map[int]float64)
	var explanations map[int][]Explanation
	if debug {
		explanations = make(map[int][]Explanation)
	}

	fuzzyBudget := FuzzyMaxTokensPerQuery

	for _, token := range expanded {
		var matches []tokenMatch

		if e.index.Contains(token) {
			matches = []tokenMatch{{token: token, similarity: 1.0}}
		} else {
			// Only base tokens may spend the fuzzy budget; expansion
			// tokens exist to help recall, not to chase typos.
			if !baseSet[token] {
				continue
			}
			if text.IsDigits(token) {
				continue
			}
			if len([]rune(token)) < FuzzyMinTokenLen {
				continue
			}
			if fuzzyBudget <= 0 {
				continue
			}

			candidates := e.index.FuzzyCandidates(token, fuzzyCandidateLimit)
			fuzzyBudget--
			if len(candidates) == 0 {
				continue
			}
			matches = closestTokens(token, candidates)

			if len(matches) == 0 {
				continue
			}
		}

		for _, match := range matches {
			idf := e.index.IDF(match.token) * match.similarity
			postings := e.index.Lookup(match.token)

			for docID, posting := range postings {
				for field := range posting.Fields {
					fieldTF := posting.TFByField[field]
					if fieldTF <= 0 {
						continue
					}

					weight := FieldWeights[field]
					contribution := weight * float64(fieldTF) * idf

					if match.similarity < 1.0 {
						switch {
						case field == "description":
							contribution *= FuzzyDescriptionPenalty
						case field != "title":
							contribution *= FuzzyNonTitlePenalty
						}
					}

					scores[docID] += contribution

					if debug {
						explanations[docID] = append(explanations[docID], Explanation{
							Token:        token,
							Field:        field,
							Weight:       weight,
							TFByField:    fieldTF,
							IDF:          idf,
							Similarity:   match.similarity,
							Contribution: contribution,
						})
					}
				}
			}
		}
	}

	return e.render(scores, explanations, debug)
}

// expandSynonyms returns the base tokens followed by their synonym
// expansions. Digits and short tokens skip lookup; each base token adds
// at most SynMaxPerBaseToken expansion tokens, never itself.
func (e *Engine) expandSynonyms(baseTokens []string) []string {
	expanded := make([]string, len(baseTokens))
	copy(expanded, baseTokens)

	if e.synonyms == nil {
		return expanded
	}

	present := make(map[string]bool, len(baseTokens))
	for _, t := range baseTokens {
		present[t] = true
	}

	for _, token := range baseTokens {
		if text.IsDigits(token) {
			continue
		}
		if len([]rune(token)) <= SynSkipShortTokensLen {
			continue
		}

		added := 0
	senses:
		for _, sense := range e.synonyms.Synsets(token) {
			for _, lemma := range sense {
				raw := strings.ToLower(strings.ReplaceAll(lemma, "_", " "))
				for _, nt := range e.tokenizer.Tokenize(raw) {
					if nt == token {
						continue
					}
					if !present[nt] {
						present[nt] = true
						expanded = append(expanded, nt)
					}
					added++
					if added >= SynMaxPerBaseToken {
						break senses
					}
				}
			}
		}
	}

	return expanded
}

// closestTokens ranks candidates by edit similarity to token and keeps the
// top few at or above the threshold, similarities normalized to [0, 1].
func closestTokens(token string, candidates []string) []tokenMatch {
	matches := make([]tokenMatch, 0, len(candidates))
	for _, candidate := range candidates {
		score := Similarity(token, candidate)
		if score >= FuzzyScoreThreshold {
			matches = append(matches, tokenMatch{token: candidate, similarity: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})

	if len(matches) > fuzzyMatchLimit {
		matches = matches[:fuzzyMatchLimit]
	}
	for i := range matches {
		matches[i].similarity /= 100
	}
	return matches
}

func (e *Engine) render(scores map[int]float64, explanations map[int][]Explanation, debug bool) []Result {
	ranked := make([]Result, 0, len(scores))
	for docID, score := range scores {
		ranked = append(ranked, Result{DocID: docID, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DocID < ranked[j].DocID
	})

	for i := range ranked {
		doc, ok := e.index.Document(ranked[i].DocID)
		if !ok {
			continue
		}
		ranked[i].Title = doc.Title
		ranked[i].Director = doc.Director
		ranked[i].Cast = doc.Cast
		ranked[i].Year = doc.Year
		ranked[i].Rating = doc.Rating
		if debug {
			ranked[i].Explanations = explanations[ranked[i].DocID]
		}
	}

	return ranked
}

// unique returns tokens de-duplicated preserving first occurrence, plus
// the membership set.
func unique(tokens []string) ([]string, map[string]bool) {
	set := make(map[string]bool, len(tokens))
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if set[t] {
			continue
		}
		set[t] = true
		result = append(result, t)
	}
	return result, set
}
