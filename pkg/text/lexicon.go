// Package text provides the tokenizer and the lexical resources behind it:
// stop words, lemmatization, and synonym lookup.
package text

// SynonymSource yields synonym senses for a token. Each sense is an ordered
// list of lemma names; multi-word lemmas use underscores, WordNet style.
// The query engine walks senses and lemmas in order and must not depend on
// the backing storage.
type SynonymSource interface {
	Synsets(token string) [][]string
}

// Lexicon bundles the linguistic resources the tokenizer and query engine
// consume: the English stop-word set, the lemmatizer, and a synonym table.
// The shipped data is embedded; larger data sets can be merged in through
// AddStopWords and AddSynset.
type Lexicon struct {
	stopWords  map[string]bool
	lemmatizer *Lemmatizer
	synonyms   map[string][][]string
}

// NewLexicon creates a lexicon with the embedded English resources.
func NewLexicon() *Lexicon {
	return &Lexicon{
		stopWords:  defaultStopWords(),
		lemmatizer: NewLemmatizer(),
		synonyms:   defaultSynonyms(),
	}
}

// IsStopWord reports whether token is in the stop-word set.
func (l *Lexicon) IsStopWord(token string) bool {
	return l.stopWords[token]
}

// Lemmatizer returns the lexicon's lemmatizer.
func (l *Lexicon) Lemmatizer() *Lemmatizer {
	return l.lemmatizer
}

// Synsets returns the senses recorded for token, in stored order.
func (l *Lexicon) Synsets(token string) [][]string {
	return l.synonyms[token]
}

// AddStopWords merges additional stop words into the set.
func (l *Lexicon) AddStopWords(words ...string) {
	for _, w := range words {
		l.stopWords[w] = true
	}
}

// AddSynset appends one sense to a word's synonym entry.
func (l *Lexicon) AddSynset(word string, lemmas ...string) {
	l.synonyms[word] = append(l.synonyms[word], lemmas)
}

// defaultStopWords returns the standard English stop-word list. The
// apostrophe-free fragments ("don", "t", "ve") matter because punctuation
// splitting runs before this filter.
func defaultStopWords() map[string]bool {
	words := []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves",
		"you", "your", "yours", "yourself", "yourselves",
		"he", "him", "his", "himself", "she", "her", "hers", "herself",
		"it", "its", "itself", "they", "them", "their", "theirs",
		"themselves", "what", "which", "who", "whom", "this", "that",
		"these", "those", "am", "is", "are", "was", "were", "be", "been",
		"being", "have", "has", "had", "having", "do", "does", "did",
		"doing", "a", "an", "the", "and", "but", "if", "or", "because",
		"as", "until", "while", "of", "at", "by", "for", "with", "about",
		"against", "between", "into", "through", "during", "before",
		"after", "above", "below", "to", "from", "up", "down", "in",
		"out", "on", "off", "over", "under", "again", "further", "then",
		"once", "here", "there", "when", "where", "why", "how", "all",
		"any", "both", "each", "few", "more", "most", "other", "some",
		"such", "no", "nor", "not", "only", "own", "same", "so", "than",
		"too", "very", "s", "t", "can", "will", "just", "don", "should",
		"now", "d", "ll", "m", "o", "re", "ve", "y", "ain", "aren",
		"couldn", "didn", "doesn", "hadn", "hasn", "haven", "isn", "ma",
		"mightn", "mustn", "needn", "shan", "shouldn", "wasn", "weren",
		"won", "wouldn",
	}

	stopWords := make(map[string]bool, len(words))
	for _, word := range words {
		stopWords[word] = true
	}
	return stopWords
}

// defaultSynonyms returns the embedded synonym table: for each head word,
// an ordered list of senses, each an ordered list of lemma names.
// Multi-word lemmas keep the underscore convention.
func defaultSynonyms() map[string][][]string {
	return map[string][][]string{
		"movie": {
			{"movie", "film", "picture", "moving_picture", "motion_picture", "flick"},
		},
		"film": {
			{"film", "movie", "picture", "moving_picture", "motion_picture"},
			{"film", "photographic_film"},
		},
		"picture": {
			{"picture", "image", "icon"},
			{"picture", "movie", "film", "moving_picture"},
		},
		"funny": {
			{"funny", "amusing", "comic", "comical", "laughable", "risible"},
			{"funny", "curious", "odd", "peculiar", "queer", "rum"},
		},
		"scary": {
			{"scary", "chilling", "shivery", "shuddery", "frightening"},
		},
		"frightening": {
			{"frightening", "scary", "terrorization"},
		},
		"fast": {
			{"fast", "quick", "speedy", "rapid"},
		},
		"quick": {
			{"quick", "fast", "speedy", "prompt"},
		},
		"auto": {
			{"auto", "automobile", "car", "machine", "motorcar"},
		},
		"automobile": {
			{"automobile", "auto", "car", "machine", "motorcar"},
		},
		"ship": {
			{"ship", "vessel", "watercraft"},
		},
		"boat": {
			{"boat", "vessel", "watercraft"},
		},
		"battle": {
			{"battle", "conflict", "fight", "engagement"},
			{"battle", "struggle"},
		},
		"fight": {
			{"fight", "battle", "conflict", "engagement"},
			{"fight", "combat", "scrap"},
		},
		"war": {
			{"war", "warfare"},
		},
		"love": {
			{"love", "passion"},
			{"love", "beloved", "dear", "dearest", "honey"},
		},
		"romance": {
			{"romance", "love_story", "love_affair"},
		},
		"hero": {
			{"hero", "champion", "fighter", "paladin"},
		},
		"villain": {
			{"villain", "scoundrel"},
			{"villain", "baddie"},
		},
		"ghost": {
			{"ghost", "shade", "spook", "wraith", "specter", "spectre"},
		},
		"monster": {
			{"monster", "fiend", "devil", "demon", "ogre"},
		},
		"alien": {
			{"alien", "foreigner", "noncitizen", "outlander"},
			{"alien", "extraterrestrial", "extraterrestrial_being"},
		},
		"space": {
			{"space", "outer_space"},
		},
		"detective": {
			{"detective", "investigator", "tec", "police_detective"},
		},
		"thief": {
			{"thief", "stealer"},
		},
		"robbery": {
			{"robbery", "heist", "holdup", "stickup"},
		},
		"journey": {
			{"journey", "travel", "trip"},
		},
		"child": {
			{"child", "kid", "youngster", "minor", "nipper"},
		},
		"doctor": {
			{"doctor", "doc", "physician", "md", "medico"},
		},
		"murder": {
			{"murder", "slaying", "execution"},
		},
		"king": {
			{"king", "male_monarch", "rex"},
		},
		"queen": {
			{"queen", "female_monarch"},
		},
		"magic": {
			{"magic", "thaumaturgy"},
			{"magic", "conjuring_trick", "illusion", "legerdemain"},
		},
		"world": {
			{"world", "universe", "existence", "creation", "cosmos"},
			{"world", "earth", "globe"},
		},
		"city": {
			{"city", "metropolis", "urban_center"},
		},
		"island": {
			{"island", "isle"},
		},
		"story": {
			{"story", "narrative", "narration", "tale"},
		},
		"secret": {
			{"secret", "enigma", "mystery"},
			{"secret", "confidential", "hidden"},
		},
		"mission": {
			{"mission", "missionary_post", "missionary_station"},
			{"mission", "military_mission"},
		},
	}
}
