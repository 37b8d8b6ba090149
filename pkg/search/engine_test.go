package search

import (
	"math"
	"testing"

	"github.com/lukapolovic/moviesearch/pkg/document"
	"github.com/lukapolovic/moviesearch/pkg/index"
	"github.com/lukapolovic/moviesearch/pkg/text"
)

var scoringFields = []string{"title", "genres", "cast", "director"}

func newTestEngine(t *testing.T, docs []document.Document, fields []string) *Engine {
	t.Helper()
	lexicon := text.NewLexicon()
	tokenizer := text.NewTokenizer(lexicon)
	idx := index.New(tokenizer)
	idx.Build(docs, fields)
	return NewEngine(idx, tokenizer, lexicon)
}

func actionDocs() []document.Document {
	return []document.Document{
		{ID: 1, Title: "mission impossible", Cast: []string{"tom cruise"}, Director: "john woo"},
		{ID: 2, Title: "top gun", Cast: []string{"tom cruise"}},
		{ID: 3, Title: "the matrix"},
	}
}

func TestSearchFieldWeighting(t *testing.T) {
	engine := newTestEngine(t, actionDocs(), scoringFields)

	results := engine.Search("mission tom", false)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}

	// Doc 1 matches title (5.0) and cast (4.0); doc 2 cast only (4.0).
	if results[0].DocID != 1 {
		t.Errorf("first result = doc %d, want doc 1", results[0].DocID)
	}
	if results[1].DocID != 2 {
		t.Errorf("second result = doc %d, want doc 2", results[1].DocID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v <= %v", results[0].Score, results[1].Score)
	}
}

func TestSearchEmptyQueries(t *testing.T) {
	engine := newTestEngine(t, actionDocs(), scoringFields)

	for _, q := range []string{"", "!!!", "the of and"} {
		if got := engine.Search(q, false); len(got) != 0 {
			t.Errorf("Search(%q) = %d results, want 0", q, len(got))
		}
	}
}

func TestSearchExactTitleMatch(t *testing.T) {
	docs := []document.Document{
		{ID: 1, Title: "inception", Director: "christopher nolan"},
		{ID: 2, Title: "the matrix"},
		{ID: 3, Title: "interstellar"},
	}
	engine := newTestEngine(t, docs, scoringFields)

	results := engine.Search("Inception", true)
	if len(results) != 1 || results[0].DocID != 1 {
		t.Fatalf("Search(\"Inception\") = %+v, want doc 1 only", results)
	}

	foundTitle := false
	for _, ex := range results[0].Explanations {
		if ex.Field == "title" {
			foundTitle = true
			if ex.Similarity != 1.0 {
				t.Errorf("exact match similarity = %v, want 1.0", ex.Similarity)
			}
			if ex.Weight != 5.0 {
				t.Errorf("title weight = %v, want 5.0", ex.Weight)
			}
		}
	}
	if !foundTitle {
		t.Error("no title explanation recorded")
	}
}

func TestSearchFuzzyMatch(t *testing.T) {
	docs := []document.Document{
		{ID: 1, Title: "inception", Director: "christopher nolan"},
		{ID: 2, Title: "the matrix"},
		{ID: 3, Title: "heat"},
	}
	engine := newTestEngine(t, docs, scoringFields)

	results := engine.Search("incepton", true)
	if len(results) == 0 {
		t.Fatal("fuzzy query returned nothing")
	}
	if results[0].DocID != 1 {
		t.Fatalf("first result = doc %d, want doc 1", results[0].DocID)
	}

	for _, ex := range results[0].Explanations {
		if ex.Similarity >= 1.0 {
			t.Errorf("fuzzy similarity = %v, want < 1.0", ex.Similarity)
		}
		if ex.Similarity < 0.80 {
			t.Errorf("fuzzy similarity = %v, below threshold", ex.Similarity)
		}
		if ex.Token != "incepton" {
			t.Errorf("explanation token = %q, want the original query token", ex.Token)
		}

		// Title contributions go unpenalized; anything else here takes
		// the non-title penalty.
		idfEff := ex.IDF
		base := ex.Weight * float64(ex.TFByField) * idfEff
		want := base
		if ex.Field != "title" {
			want = base * FuzzyNonTitlePenalty
		}
		if math.Abs(ex.Contribution-want) > 1e-9 {
			t.Errorf("field %q contribution = %v, want %v", ex.Field, ex.Contribution, want)
		}
	}
}

func TestSearchFuzzyDescriptionPenalty(t *testing.T) {
	docs := []document.Document{
		{ID: 1, Title: "heat", Description: "an inception of chaos"},
		{ID: 2, Title: "the matrix"},
		{ID: 3, Title: "casino"},
	}
	engine := newTestEngine(t, docs, []string{"title", "description"})

	results := engine.Search("incepton", true)
	if len(results) == 0 {
		t.Fatal("fuzzy query returned nothing")
	}

	for _, ex := range results[0].Explanations {
		if ex.Field != "description" {
			continue
		}
		base := ex.Weight * float64(ex.TFByField) * ex.IDF
		want := base * FuzzyDescriptionPenalty
		if math.Abs(ex.Contribution-want) > 1e-9 {
			t.Errorf("description contribution = %v, want %v", ex.Contribution, want)
		}
	}
}

func TestSearchFuzzyBudget(t *testing.T) {
	docs := []document.Document{
		{ID: 1, Title: "inception"},
		{ID: 2, Title: "gladiator"},
		{ID: 3, Title: "terminator"},
		{ID: 4, Title: "avatar"},
	}
	engine := newTestEngine(t, docs, scoringFields)

	// Four misspelled tokens; the budget covers three fuzzy branches.
	results := engine.Search("incepton gladiatr terminatr avatr", false)

	got := make(map[int]bool)
	for _, r := range results {
		got[r.DocID] = true
	}
	if !got[1] || !got[2] || !got[3] {
		t.Fatalf("results = %v, want docs 1, 2, 3 matched", got)
	}
	if got[4] {
		t.Error("doc 4 matched after the fuzzy budget ran out")
	}
}

func TestSearchFuzzyGates(t *testing.T) {
	docs := []document.Document{
		{ID: 1, Title: "inception", Year: 2010},
		{ID: 2, Title: "heat", Year: 1995},
	}
	engine := newTestEngine(t, docs, []string{"title", "year"})

	// Pure digits never go fuzzy.
	if got := engine.Search("2011", false); len(got) != 0 {
		t.Errorf("digit query matched fuzzily: %+v", got)
	}

	// Tokens under four characters never go fuzzy.
	if got := engine.Search("hea", false); len(got) != 0 {
		t.Errorf("short query matched fuzzily: %+v", got)
	}
}

func TestSearchSynonymExpansion(t *testing.T) {
	docs := []document.Document{
		{ID: 1, Title: "a great film"},
		{ID: 2, Title: "silent hill"},
		{ID: 3, Title: "the pianist"},
	}
	engine := newTestEngine(t, docs, scoringFields)

	// "movie" is not in the corpus; its synonym "film" is.
	results := engine.Search("movie", true)
	if len(results) != 1 || results[0].DocID != 1 {
		t.Fatalf("Search(\"movie\") = %+v, want doc 1 via synonym", results)
	}

	// Synonym matches are exact index hits, not fuzzy ones.
	for _, ex := range results[0].Explanations {
		if ex.Similarity != 1.0 {
			t.Errorf("synonym match similarity = %v, want 1.0", ex.Similarity)
		}
	}
}

func TestSearchTieBreakByDocID(t *testing.T) {
	docs := []document.Document{
		{ID: 9, Title: "solaris"},
		{ID: 4, Title: "solaris"},
		{ID: 7, Title: "stalker"},
	}
	engine := newTestEngine(t, docs, scoringFields)

	results := engine.Search("solaris", false)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocID != 4 || results[1].DocID != 9 {
		t.Errorf("tie order = [%d %d], want ascending ids [4 9]", results[0].DocID, results[1].DocID)
	}
}

func TestSearchRendersStoredDocument(t *testing.T) {
	docs := []document.Document{
		{
			ID:       1,
			Title:    "alien",
			Year:     1979,
			Cast:     []string{"sigourney weaver"},
			Director: "ridley scott",
			Rating:   8.5,
		},
	}
	engine := newTestEngine(t, docs, scoringFields)

	results := engine.Search("alien", false)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.Title != "alien" || r.Director != "ridley scott" || r.Year != 1979 || r.Rating != 8.5 {
		t.Errorf("rendered result = %+v", r)
	}
	if len(r.Cast) != 1 || r.Cast[0] != "sigourney weaver" {
		t.Errorf("cast = %v", r.Cast)
	}
	if r.Explanations != nil {
		t.Error("explanations present without debug")
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("inception", "inception"); got != 100 {
		t.Errorf("identical similarity = %v, want 100", got)
	}

	got := Similarity("incepton", "inception")
	if got < 80 || got >= 100 {
		t.Errorf("Similarity(incepton, inception) = %v, want in [80, 100)", got)
	}

	if got := Similarity("abc", "xyz"); got != 0 {
		t.Errorf("disjoint similarity = %v, want 0", got)
	}
}
