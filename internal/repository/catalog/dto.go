package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
)

// movieDoc is the catalog document shape. Projections leave unselected fields zero.
type movieDoc struct {
	ID          int        `bson:"_id"`
	Title       string     `bson:"title"`
	Overview    string     `bson:"overview"`
	Tagline     string     `bson:"tagline"`
	PosterPath  string     `bson:"poster_path"`
	ReleaseDate *time.Time `bson:"release_date"`
	VoteAverage float64    `bson:"vote_average"`
	VoteCount   int        `bson:"vote_count"`
	Popularity  float64    `bson:"popularity"`
	Genres      []string   `bson:"genres"`
	Score       float64    `bson:"score"`
	MatchCount  int        `bson:"match_count"`
}

type bucketDoc[K comparable] struct {
	Key   K   `bson:"_id"`
	Count int `bson:"count"`
}

// searchDoc is the single document produced by the search $facet stage.
type searchDoc struct {
	SearchResults    []movieDoc          `bson:"searchResults"`
	GenreFacet       []bucketDoc[string] `bson:"genreFacet"`
	ReleaseYearFacet []bucketDoc[int]    `bson:"releaseYearFacet"`
	VotesFacet       []bucketDoc[int]    `bson:"votesFacet"`
}

// summaryProjection selects the list fields; extra names are added on top.
func summaryProjection(extra ...string) bson.D {
	p := bson.D{
		{Key: "_id", Value: 1},
		{Key: "poster_path", Value: 1},
		{Key: "release_date", Value: 1},
		{Key: "title", Value: 1},
		{Key: "vote_average", Value: 1},
		{Key: "vote_count", Value: 1},
	}
	for _, f := range extra {
		p = append(p, bson.E{Key: f, Value: 1})
	}
	return p
}

var detailProjection = bson.D{
	{Key: "_id", Value: 1},
	{Key: "genres", Value: 1},
	{Key: "overview", Value: 1},
	{Key: "poster_path", Value: 1},
	{Key: "release_date", Value: 1},
	{Key: "tagline", Value: 1},
	{Key: "title", Value: 1},
	{Key: "vote_average", Value: 1},
	{Key: "vote_count", Value: 1},
}

func (d *movieDoc) toSummary() movie.Summary {
	return movie.Summary{
		ID:          d.ID,
		Title:       d.Title,
		PosterPath:  d.PosterPath,
		ReleaseDate: d.ReleaseDate,
		VoteAverage: d.VoteAverage,
		VoteCount:   d.VoteCount,
		Popularity:  d.Popularity,
		Genres:      d.Genres,
		Score:       d.Score,
		MatchCount:  d.MatchCount,
	}
}

func (d *movieDoc) toDetail() movie.Detail {
	genres := d.Genres
	if genres == nil {
		genres = []string{}
	}
	return movie.Detail{
		ID:          d.ID,
		Title:       d.Title,
		Overview:    d.Overview,
		Tagline:     d.Tagline,
		PosterPath:  d.PosterPath,
		ReleaseDate: movie.FormatReleaseDate(d.ReleaseDate),
		VoteAverage: d.VoteAverage,
		VoteCount:   d.VoteCount,
		Genres:      genres,
	}
}

func toSummaries(docs []movieDoc) []movie.Summary {
	out := make([]movie.Summary, len(docs))
	for i := range docs {
		out[i] = docs[i].toSummary()
	}
	return out
}

func toBuckets[K comparable](docs []bucketDoc[K]) []movie.Bucket[K] {
	out := make([]movie.Bucket[K], len(docs))
	for i, d := range docs {
		out[i] = movie.Bucket[K]{Key: d.Key, Count: d.Count}
	}
	return out
}
