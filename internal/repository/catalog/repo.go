// Package catalog reads movie documents from MongoDB.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/domain"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
)

// DefaultCollection holds the catalog documents.
const DefaultCollection = "movies"

// store is the consumer interface for catalog documents (ISP).
type store interface {
	Find(ctx context.Context, collection string, filter any, opts db.FindOptions, out any) error
	FindOne(ctx context.Context, collection string, filter, projection any, out any) error
	Aggregate(ctx context.Context, collection string, pipeline any, out any) error
}

// Repo implements usecase/catalog.Repository.
type Repo struct {
	store      store
	collection string
}

// New creates a catalog repository over collection (DefaultCollection when empty).
func New(s store, collection string) *Repo {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Repo{store: s, collection: collection}
}

// Search runs the full-text query: results ranked by textScore × popularity, facets over every match.
func (r *Repo) Search(ctx context.Context, text string, limit int) (movie.SearchResult, error) {
	var out []searchDoc
	if err := r.store.Aggregate(ctx, r.collection, searchPipeline(text, limit), &out); err != nil {
		return movie.SearchResult{}, fmt.Errorf("search %q: %w", text, err)
	}
	if len(out) == 0 {
		return emptySearchResult(), nil
	}
	doc := out[0]
	return movie.SearchResult{
		Results:          toSummaries(doc.SearchResults),
		GenreFacet:       toBuckets(doc.GenreFacet),
		ReleaseYearFacet: toBuckets(doc.ReleaseYearFacet),
		VotesFacet:       toBuckets(doc.VotesFacet),
	}, nil
}

// TopRated lists movies with more than minVotes votes by rating.
func (r *Repo) TopRated(ctx context.Context, minVotes, limit int) ([]movie.Summary, error) {
	filter := bson.D{{Key: "vote_count", Value: bson.D{{Key: "$gt", Value: minVotes}}}}
	sort := bson.D{{Key: "vote_average", Value: -1}, {Key: "_id", Value: 1}}
	return r.find(ctx, "top rated", filter, sort, limit)
}

// Recent lists movies with at least minVotes votes, newest release first.
func (r *Repo) Recent(ctx context.Context, minVotes, limit int) ([]movie.Summary, error) {
	filter := bson.D{{Key: "vote_count", Value: bson.D{{Key: "$gte", Value: minVotes}}}}
	sort := bson.D{{Key: "release_date", Value: -1}, {Key: "_id", Value: 1}}
	return r.find(ctx, "recent", filter, sort, limit)
}

// Details returns the full projection of id, or domain.ErrNotFound.
func (r *Repo) Details(ctx context.Context, id int) (movie.Detail, error) {
	var doc movieDoc
	err := r.store.FindOne(ctx, r.collection, bson.D{{Key: "_id", Value: id}}, detailProjection, &doc)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return movie.Detail{}, fmt.Errorf("movie %d: %w", id, domain.ErrNotFound)
		}
		return movie.Detail{}, fmt.Errorf("details %d: %w", id, err)
	}
	return doc.toDetail(), nil
}

// SameGenre ranks other movies sharing a genre with genres by overlap size, then rating.
func (r *Repo) SameGenre(ctx context.Context, id int, genres []string, minVotes, limit int) ([]movie.Summary, error) {
	if len(genres) == 0 {
		return []movie.Summary{}, nil
	}
	var docs []movieDoc
	if err := r.store.Aggregate(ctx, r.collection, sameGenrePipeline(id, genres, minVotes, limit), &docs); err != nil {
		return nil, fmt.Errorf("same genre %d: %w", id, err)
	}
	return toSummaries(docs), nil
}

// ByIDs fetches summaries for ids. Only OrderPopularity defines the result order.
func (r *Repo) ByIDs(ctx context.Context, ids []int, order movie.Order) ([]movie.Summary, error) {
	if len(ids) == 0 {
		return []movie.Summary{}, nil
	}
	opts := db.FindOptions{Projection: summaryProjection("popularity")}
	if order == movie.OrderPopularity {
		opts.Sort = bson.D{{Key: "popularity", Value: -1}, {Key: "_id", Value: 1}}
	}

	var docs []movieDoc
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	if err := r.store.Find(ctx, r.collection, filter, opts, &docs); err != nil {
		return nil, fmt.Errorf("hydrate %d ids: %w", len(ids), err)
	}
	return toSummaries(docs), nil
}

func (r *Repo) find(ctx context.Context, what string, filter, sort bson.D, limit int) ([]movie.Summary, error) {
	var docs []movieDoc
	opts := db.FindOptions{Projection: summaryProjection(), Sort: sort, Limit: int64(limit)}
	if err := r.store.Find(ctx, r.collection, filter, opts, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return toSummaries(docs), nil
}

func searchPipeline(text string, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: text}}}}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "score", Value: bson.D{{Key: "$multiply", Value: bson.A{
				bson.D{{Key: "$meta", Value: "textScore"}},
				"$popularity",
			}}}},
		}}},
		{{Key: "$facet", Value: bson.D{
			{Key: "searchResults", Value: bson.A{
				bson.D{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}}},
				bson.D{{Key: "$limit", Value: limit}},
				bson.D{{Key: "$project", Value: summaryProjection("score")}},
			}},
			{Key: "genreFacet", Value: bson.A{
				bson.D{{Key: "$unwind", Value: "$genres"}},
				bson.D{{Key: "$match", Value: bson.D{{Key: "genres", Value: bson.D{{Key: "$nin", Value: bson.A{nil, ""}}}}}}},
				bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$genres"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
			}},
			{Key: "releaseYearFacet", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "release_date", Value: bson.D{{Key: "$ne", Value: nil}}}}}},
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: bson.D{{Key: "$year", Value: "$release_date"}}},
					{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
			}},
			{Key: "votesFacet", Value: bson.A{
				bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$vote_count"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
			}},
		}}},
	}
}

func sameGenrePipeline(id int, genres []string, minVotes, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$ne", Value: id}}},
			{Key: "genres", Value: bson.D{{Key: "$in", Value: genres}}},
			{Key: "vote_count", Value: bson.D{{Key: "$gte", Value: minVotes}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "match_count", Value: bson.D{{Key: "$size", Value: bson.D{
				{Key: "$setIntersection", Value: bson.A{"$genres", genres}},
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "match_count", Value: -1}, {Key: "vote_average", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: summaryProjection("genres", "match_count")}},
	}
}

func emptySearchResult() movie.SearchResult {
	return movie.SearchResult{
		Results:          []movie.Summary{},
		GenreFacet:       []movie.Bucket[string]{},
		ReleaseYearFacet: []movie.Bucket[int]{},
		VotesFacet:       []movie.Bucket[int]{},
	}
}
