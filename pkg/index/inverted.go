// Package index implements the in-memory inverted index over a document
// batch, plus the character-n-gram index used for fuzzy candidate
// generation. The index is built once and read-only afterward, so
// concurrent readers need no locking.
package index

import (
	"math"

	"github.com/lukapolovic/moviesearch/pkg/document"
	"github.com/lukapolovic/moviesearch/pkg/text"
)

// Posting records one (token, document) pair: the fields the token appears
// in, the total term frequency, and the per-field breakdown. The invariant
// tf == sum of TFByField holds for every posting the index hands out.
type Posting struct {
	Fields    map[string]bool
	TF        int
	TFByField map[string]int
}

// clone returns a copy isolated from index internals.
func (p *Posting) clone() Posting {
	fields := make(map[string]bool, len(p.Fields))
	for f := range p.Fields {
		fields[f] = true
	}
	tfByField := make(map[string]int, len(p.TFByField))
	for f, tf := range p.TFByField {
		tfByField[f] = tf
	}
	return Posting{Fields: fields, TF: p.TF, TFByField: tfByField}
}

// Index is the inverted index over one shard's partition of the corpus.
type Index struct {
	tokenizer *text.Tokenizer

	// token -> doc id -> posting
	postings map[string]map[int]*Posting

	// token -> number of documents containing it
	docFreq map[string]int

	// documents retained whole for result rendering
	docs map[int]document.Document

	totalDocs int

	ngrams *NGramIndex
}

// New creates an empty index that analyzes text with the given tokenizer.
func New(tokenizer *text.Tokenizer) *Index {
	return &Index{
		tokenizer: tokenizer,
		postings:  make(map[string]map[int]*Posting),
		docFreq:   make(map[string]int),
		docs:      make(map[int]document.Document),
	}
}

// Build replaces any existing index with one computed from docs projected
// over fields, then constructs the trigram index over the vocabulary.
// Build is single-shot: after it returns the index never changes, and
// reads are safe without locks.
func (idx *Index) Build(docs []document.Document, fields []string) {
	idx.postings = make(map[string]map[int]*Posting)
	idx.docFreq = make(map[string]int)
	idx.docs = make(map[int]document.Document, len(docs))
	idx.totalDocs = 0

	for i := range docs {
		idx.addDocument(&docs[i], fields)
	}

	idx.ngrams = buildNGramIndex(idx.vocabulary())
}

func (idx *Index) addDocument(doc *document.Document, fields []string) {
	idx.totalDocs++

	seen := make(map[string]bool)

	for _, field := range fields {
		tokens := idx.tokenizer.Tokenize(doc.FieldText(field))
		for _, token := range tokens {
			byDoc, ok := idx.postings[token]
			if !ok {
				byDoc = make(map[int]*Posting)
				idx.postings[token] = byDoc
			}
			posting, ok := byDoc[doc.ID]
			if !ok {
				posting = &Posting{
					Fields:    make(map[string]bool),
					TFByField: make(map[string]int),
				}
				byDoc[doc.ID] = posting
			}
			posting.Fields[field] = true
			posting.TFByField[field]++
			posting.TF++

			seen[token] = true
		}
	}

	// Document frequency counts each document once per token, no matter
	// how many fields or occurrences.
	for token := range seen {
		idx.docFreq[token]++
	}

	idx.docs[doc.ID] = *doc
}

// Contains reports whether token is in the vocabulary.
func (idx *Index) Contains(token string) bool {
	_, ok := idx.postings[token]
	return ok
}

// Lookup returns the postings for token keyed by document id. The returned
// postings are copies; callers may mutate them freely.
func (idx *Index) Lookup(token string) map[int]Posting {
	byDoc, ok := idx.postings[token]
	if !ok {
		return nil
	}
	result := make(map[int]Posting, len(byDoc))
	for docID, posting := range byDoc {
		result[docID] = posting.clone()
	}
	return result
}

// IDF returns ln(N / (df + 1)) for token. Unknown tokens have df = 0.
// The value can go negative when df + 1 exceeds N; the scorer relies on
// the raw value either way.
func (idx *Index) IDF(token string) float64 {
	if idx.totalDocs == 0 {
		return 0
	}
	df := idx.docFreq[token]
	return math.Log(float64(idx.totalDocs) / float64(df+1))
}

// DocFreq returns the number of documents containing token.
func (idx *Index) DocFreq(token string) int {
	return idx.docFreq[token]
}

// TotalDocuments returns the number of documents added to the index.
func (idx *Index) TotalDocuments() int {
	return idx.totalDocs
}

// VocabularySize returns the number of distinct tokens.
func (idx *Index) VocabularySize() int {
	return len(idx.postings)
}

// Document returns the stored document for id.
func (idx *Index) Document(id int) (document.Document, bool) {
	doc, ok := idx.docs[id]
	return doc, ok
}

// FuzzyCandidates returns up to max vocabulary tokens sharing character
// n-grams with token, ordered by overlap count descending. See
// NGramIndex.Candidates for the overlap rules.
func (idx *Index) FuzzyCandidates(token string, max int) []string {
	if idx.ngrams == nil {
		return nil
	}
	return idx.ngrams.Candidates(token, max)
}

func (idx *Index) vocabulary() []string {
	vocab := make([]string, 0, len(idx.postings))
	for token := range idx.postings {
		vocab = append(vocab, token)
	}
	return vocab
}
