// Package document defines the movie record model and the corpus loader.
package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MinYear is the oldest release year accepted during normalization.
// Nothing on film predates 1888.
const MinYear = 1888

const (
	RatingMin = 0.0
	RatingMax = 10.0
)

// MaxYear returns the upper bound for acceptable release years. Catalog
// dumps routinely carry titles dated a few years out.
func MaxYear() int {
	return time.Now().Year() + 5
}

// IndexedFields lists the document fields projected into the index.
var IndexedFields = []string{
	"title",
	"year",
	"genres",
	"description",
	"cast",
	"director",
	"rating",
}

// Document is one movie record. IDs are unique positive integers; list
// fields hold trimmed, lowercased, de-duplicated entries. The record is
// retained whole after indexing so results can be rendered without a
// second store.
type Document struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Genres      []string `json:"genres"`
	Description string   `json:"description"`
	Cast        []string `json:"cast"`
	Director    string   `json:"director"`
	Rating      float64  `json:"rating"`
}

// InvalidDocumentError describes a record rejected during normalization.
type InvalidDocumentError struct {
	Field  string
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document: field %q %s", e.Field, e.Reason)
}

// FieldText returns the indexable text of one field: list fields are
// space-joined, numeric scalars converted to their string form.
func (d *Document) FieldText(field string) string {
	switch field {
	case "title":
		return d.Title
	case "year":
		return strconv.Itoa(d.Year)
	case "genres":
		return strings.Join(d.Genres, " ")
	case "description":
		return d.Description
	case "cast":
		return strings.Join(d.Cast, " ")
	case "director":
		return d.Director
	case "rating":
		return strconv.FormatFloat(d.Rating, 'g', -1, 64)
	default:
		return ""
	}
}

// rawDocument is the permissive on-disk shape. Catalog dumps are sloppy:
// ids arrive as numbers or digit strings, years as floats, cast and genres
// as comma-separated strings or lists.
type rawDocument struct {
	ID          any    `json:"id"`
	Title       string `json:"title"`
	Year        any    `json:"year"`
	Genres      any    `json:"genres"`
	Description string `json:"description"`
	Cast        any    `json:"cast"`
	Director    string `json:"director"`
	Rating      any    `json:"rating"`
}

// normalize validates a raw record and produces the canonical Document.
func (r *rawDocument) normalize() (Document, error) {
	id, err := normalizeID(r.ID)
	if err != nil {
		return Document{}, err
	}

	title, err := normalizeTitle(r.Title)
	if err != nil {
		return Document{}, err
	}

	year, err := normalizeYear(r.Year)
	if err != nil {
		return Document{}, err
	}

	genres, err := normalizeNameList("genres", r.Genres)
	if err != nil {
		return Document{}, err
	}

	cast, err := normalizeNameList("cast", r.Cast)
	if err != nil {
		return Document{}, err
	}

	rating, err := normalizeRating(r.Rating)
	if err != nil {
		return Document{}, err
	}

	return Document{
		ID:          id,
		Title:       title,
		Year:        year,
		Genres:      genres,
		Description: collapseWhitespace(r.Description),
		Cast:        cast,
		Director:    strings.ToLower(collapseWhitespace(r.Director)),
		Rating:      rating,
	}, nil
}

func normalizeID(v any) (int, error) {
	switch id := v.(type) {
	case float64:
		if id != math.Trunc(id) {
			return 0, &InvalidDocumentError{Field: "id", Reason: "is not an integer"}
		}
		if id < 1 {
			return 0, &InvalidDocumentError{Field: "id", Reason: "must be positive"}
		}
		return int(id), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return 0, &InvalidDocumentError{Field: "id", Reason: "contains non-digits"}
		}
		if n < 1 {
			return 0, &InvalidDocumentError{Field: "id", Reason: "must be positive"}
		}
		return n, nil
	case nil:
		return 0, &InvalidDocumentError{Field: "id", Reason: "is missing"}
	default:
		return 0, &InvalidDocumentError{Field: "id", Reason: "has unsupported type"}
	}
}

func normalizeTitle(title string) (string, error) {
	title = strings.ToLower(collapseWhitespace(title))
	if title == "" {
		return "", &InvalidDocumentError{Field: "title", Reason: "is empty"}
	}
	return title, nil
}

func normalizeYear(v any) (int, error) {
	var year int
	switch y := v.(type) {
	case float64:
		if math.IsNaN(y) || y != math.Trunc(y) {
			return 0, &InvalidDocumentError{Field: "year", Reason: "is not an integer"}
		}
		year = int(y)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil {
			return 0, &InvalidDocumentError{Field: "year", Reason: "contains non-digits"}
		}
		year = n
	case nil:
		return 0, &InvalidDocumentError{Field: "year", Reason: "is missing"}
	default:
		return 0, &InvalidDocumentError{Field: "year", Reason: "has unsupported type"}
	}

	if year < MinYear || year > MaxYear() {
		return 0, &InvalidDocumentError{Field: "year", Reason: "is out of bounds"}
	}
	return year, nil
}

// normalizeNameList accepts either a comma-separated string or a list of
// strings, and returns trimmed, lowercased entries de-duplicated in order.
func normalizeNameList(field string, v any) ([]string, error) {
	var entries []string

	switch val := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		entries = strings.Split(val, ",")
	case []any:
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &InvalidDocumentError{Field: field, Reason: "contains a non-string entry"}
			}
			entries = append(entries, s)
		}
	default:
		return nil, &InvalidDocumentError{Field: field, Reason: "is neither string nor list"}
	}

	seen := make(map[string]bool, len(entries))
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		result = append(result, e)
	}
	return result, nil
}

func normalizeRating(v any) (float64, error) {
	var rating float64
	switch r := v.(type) {
	case float64:
		rating = r
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return 0, &InvalidDocumentError{Field: "rating", Reason: "is not a number"}
		}
		rating = f
	case nil:
		return 0, nil
	default:
		return 0, &InvalidDocumentError{Field: "rating", Reason: "has unsupported type"}
	}

	if math.IsNaN(rating) || rating < RatingMin || rating > RatingMax {
		return 0, &InvalidDocumentError{Field: "rating", Reason: "is out of bounds"}
	}
	return rating, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
