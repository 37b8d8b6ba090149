package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns free text into the normalized token stream the index
// and query engine share. It is a pure function of its lexicon: the same
// input always yields the same tokens.
type Tokenizer struct {
	lexicon *Lexicon
}

// NewTokenizer creates a tokenizer backed by the given lexicon.
func NewTokenizer(lexicon *Lexicon) *Tokenizer {
	return &Tokenizer{lexicon: lexicon}
}

// Lexicon returns the tokenizer's lexicon.
func (t *Tokenizer) Lexicon() *Lexicon {
	return t.lexicon
}

// Tokenize normalizes text into lemmatized tokens: lowercase, accents
// stripped, punctuation collapsed to spaces, stop words dropped, then
// verb and noun lemmatization in that order. Order and duplicates are
// preserved. Pure digit tokens survive; years and ratings are searchable.
func (t *Tokenizer) Tokenize(text string) []string {
	return t.tokenize(text, true)
}

// TokenizeSurface is Tokenize without the lemmatization passes. Only the
// tokenizer tests call it; the index and query paths use Tokenize.
func (t *Tokenizer) TokenizeSurface(text string) []string {
	return t.tokenize(text, false)
}

func (t *Tokenizer) tokenize(text string, lemmatize bool) []string {
	if text == "" {
		return nil
	}

	text = strings.ToLower(text)
	text = NormalizeUnicode(text)
	text = CleanPunctuation(text)

	parts := strings.Fields(text)

	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if t.lexicon.IsStopWord(part) {
			continue
		}
		if lemmatize {
			// Verbs first: "running" must resolve through the verb
			// table before the noun pass sees it.
			part = t.lexicon.Lemmatizer().Verb(part)
			part = t.lexicon.Lemmatizer().Noun(part)
		}
		tokens = append(tokens, part)
	}

	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// BasicTokenFilter reports whether a token is substantial enough to stand
// alone: at least two characters, not a stop word, not pure digits.
func (t *Tokenizer) BasicTokenFilter(token string) bool {
	if len([]rune(token)) < 2 {
		return false
	}
	if t.lexicon.IsStopWord(token) {
		return false
	}
	if IsDigits(token) {
		return false
	}
	return true
}

// NormalizeUnicode decomposes text (NFKD) and drops combining marks,
// stripping accents: "café" becomes "cafe".
func NormalizeUnicode(text string) string {
	decomposed := norm.NFKD.String(text)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanPunctuation replaces every maximal run of Unicode punctuation with
// a single space.
func CleanPunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inRun := false
	for _, r := range text {
		if unicode.IsPunct(r) {
			if !inRun {
				b.WriteRune(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// IsDigits reports whether token consists entirely of ASCII digits.
func IsDigits(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
