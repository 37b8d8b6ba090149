package text

import "testing"

func TestLemmatizerVerb(t *testing.T) {
	lem := NewLemmatizer()

	tests := []struct {
		in   string
		want string
	}{
		{"running", "run"},
		{"ran", "run"},
		{"went", "go"},
		{"fought", "fight"},
		{"walked", "walk"},
		{"loves", "love"},
		{"dies", "die"},
		{"tries", "try"},
		{"escaped", "escape"},
		{"kidnapped", "kidnap"},
		// Unknown words pass through unchanged.
		{"xylograph", "xylograph"},
		{"nolan", "nolan"},
	}
	for _, tt := range tests {
		if got := lem.Verb(tt.in); got != tt.want {
			t.Errorf("Verb(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLemmatizerNoun(t *testing.T) {
	lem := NewLemmatizer()

	tests := []struct {
		in   string
		want string
	}{
		{"movies", "movie"},
		{"cafes", "cafe"},
		{"men", "man"},
		{"children", "child"},
		{"wolves", "wolf"},
		{"heroes", "hero"},
		{"thieves", "thief"},
		{"stories", "story"},
		{"witches", "witch"},
		{"cities", "city"},
		// Base forms stay put.
		{"movie", "movie"},
		{"war", "war"},
	}
	for _, tt := range tests {
		if got := lem.Noun(tt.in); got != tt.want {
			t.Errorf("Noun(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLemmatizerVerbThenNoun(t *testing.T) {
	lem := NewLemmatizer()

	// The tokenizer applies the verb pass first, then the noun pass.
	// "movies" must survive the verb pass untouched so the noun pass can
	// resolve it.
	if got := lem.Verb("movies"); got != "movies" {
		t.Fatalf("Verb(\"movies\") = %q, want unchanged", got)
	}
	if got := lem.Noun(lem.Verb("movies")); got != "movie" {
		t.Errorf("Noun(Verb(\"movies\")) = %q, want \"movie\"", got)
	}
}

func TestLemmatizerExtendVocabulary(t *testing.T) {
	lem := NewLemmatizer()

	if got := lem.Noun("spaceships"); got != "spaceships" {
		t.Fatalf("Noun(\"spaceships\") = %q before AddNoun, want unchanged", got)
	}
	lem.AddNoun("spaceship")
	if got := lem.Noun("spaceships"); got != "spaceship" {
		t.Errorf("Noun(\"spaceships\") = %q after AddNoun, want \"spaceship\"", got)
	}
}
