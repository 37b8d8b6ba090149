package document

import (
	"reflect"
	"testing"
)

func TestNormalizeValidRecord(t *testing.T) {
	raw := rawDocument{
		ID:          float64(7),
		Title:       "  The   Matrix ",
		Year:        float64(1999),
		Genres:      "Action, Sci-Fi, action",
		Description: "  A hacker   learns the truth.  ",
		Cast:        []any{"Keanu Reeves", " Carrie-Anne Moss "},
		Director:    "Lana Wachowski",
		Rating:      float64(8.7),
	}

	doc, err := raw.normalize()
	if err != nil {
		t.Fatalf("normalize() error: %v", err)
	}

	if doc.ID != 7 {
		t.Errorf("ID = %d, want 7", doc.ID)
	}
	if doc.Title != "the matrix" {
		t.Errorf("Title = %q, want %q", doc.Title, "the matrix")
	}
	if want := []string{"action", "sci-fi"}; !reflect.DeepEqual(doc.Genres, want) {
		t.Errorf("Genres = %v, want %v", doc.Genres, want)
	}
	if want := []string{"keanu reeves", "carrie-anne moss"}; !reflect.DeepEqual(doc.Cast, want) {
		t.Errorf("Cast = %v, want %v", doc.Cast, want)
	}
	if doc.Description != "A hacker learns the truth." {
		t.Errorf("Description = %q", doc.Description)
	}
	if doc.Director != "lana wachowski" {
		t.Errorf("Director = %q", doc.Director)
	}
	if doc.Rating != 8.7 {
		t.Errorf("Rating = %v, want 8.7", doc.Rating)
	}
}

func TestNormalizeStringIDAndYear(t *testing.T) {
	raw := rawDocument{
		ID:    "42",
		Title: "Up",
		Year:  "2009",
	}
	doc, err := raw.normalize()
	if err != nil {
		t.Fatalf("normalize() error: %v", err)
	}
	if doc.ID != 42 || doc.Year != 2009 {
		t.Errorf("got id=%d year=%d, want 42/2009", doc.ID, doc.Year)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  rawDocument
	}{
		{"missing id", rawDocument{Title: "X", Year: float64(2000)}},
		{"zero id", rawDocument{ID: float64(0), Title: "X", Year: float64(2000)}},
		{"non-digit id", rawDocument{ID: "12a", Title: "X", Year: float64(2000)}},
		{"empty title", rawDocument{ID: float64(1), Title: "   ", Year: float64(2000)}},
		{"missing year", rawDocument{ID: float64(1), Title: "X"}},
		{"fractional year", rawDocument{ID: float64(1), Title: "X", Year: float64(1999.5)}},
		{"ancient year", rawDocument{ID: float64(1), Title: "X", Year: float64(1500)}},
		{"numeric genre entry", rawDocument{ID: float64(1), Title: "X", Year: float64(2000), Genres: []any{"drama", float64(3)}}},
		{"rating out of bounds", rawDocument{ID: float64(1), Title: "X", Year: float64(2000), Rating: float64(11)}},
	}
	for _, tt := range tests {
		if _, err := tt.raw.normalize(); err == nil {
			t.Errorf("%s: normalize() succeeded, want error", tt.name)
		}
	}
}

func TestFieldText(t *testing.T) {
	doc := Document{
		ID:          1,
		Title:       "top gun",
		Year:        1986,
		Genres:      []string{"action", "drama"},
		Description: "pilots compete",
		Cast:        []string{"tom cruise", "val kilmer"},
		Director:    "tony scott",
		Rating:      6.9,
	}

	tests := []struct {
		field string
		want  string
	}{
		{"title", "top gun"},
		{"year", "1986"},
		{"genres", "action drama"},
		{"description", "pilots compete"},
		{"cast", "tom cruise val kilmer"},
		{"director", "tony scott"},
		{"rating", "6.9"},
		{"unknown", ""},
	}
	for _, tt := range tests {
		if got := doc.FieldText(tt.field); got != tt.want {
			t.Errorf("FieldText(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}
