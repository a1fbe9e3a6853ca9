// Package movie holds the catalog read models shared by the query engines.
package movie

import "time"

// Summary is the list projection of a catalog movie.
type Summary struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	PosterPath  string     `json:"poster_path,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	VoteAverage float64    `json:"vote_average"`
	VoteCount   int        `json:"vote_count"`
	Popularity  float64    `json:"popularity,omitempty"`
	Genres      []string   `json:"genres,omitempty"`
	// Score is textScore × popularity, set only by full-text search.
	Score float64 `json:"score,omitempty"`
	// MatchCount is the number of genres shared with a reference set, set only by same-genre ranking.
	MatchCount int `json:"match_count,omitempty"`
}

// Detail is the full projection of a single movie. ReleaseDate is pre-formatted for display.
type Detail struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	Tagline     string   `json:"tagline"`
	PosterPath  string   `json:"poster_path"`
	ReleaseDate string   `json:"release_date"`
	VoteAverage float64  `json:"vote_average"`
	VoteCount   int      `json:"vote_count"`
	Genres      []string `json:"genres"`
}

// Bucket is one group of a facet.
type Bucket[K comparable] struct {
	Key   K   `json:"key"`
	Count int `json:"count"`
}

// SearchResult is the outcome of full-text search: the top results plus facets over the whole matched set.
type SearchResult struct {
	Results          []Summary        `json:"results"`
	GenreFacet       []Bucket[string] `json:"genre_facet"`
	ReleaseYearFacet []Bucket[int]    `json:"release_year_facet"`
	VotesFacet       []Bucket[int]    `json:"votes_facet"`
}

// Order selects how hydrated summaries are ordered.
type Order int

const (
	// OrderNone keeps whatever order the catalog store returns. Input order is not preserved.
	OrderNone Order = iota
	// OrderPopularity sorts by popularity descending.
	OrderPopularity
)

func (o Order) String() string {
	switch o {
	case OrderPopularity:
		return "popularity"
	default:
		return "none"
	}
}

// ReleaseDateLayout is the long-form display layout, e.g. "March 31, 1999".
const ReleaseDateLayout = "January 02, 2006"

// FormatReleaseDate renders t in ReleaseDateLayout, or "" when the date is unknown.
func FormatReleaseDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(ReleaseDateLayout)
}
