// Package social reads the User-[:LIKES]->Movie graph from Neo4j.
package social

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/domain/movie"
	"github.com/kailas-cloud/cinegraph/internal/domain/social"
)

// All user-supplied values are bound as parameters.
const (
	likersQuery = `
MATCH (m:Movie {_id: $movieId})<-[:LIKES]-(u:User)
WHERE u.username <> $username
RETURN DISTINCT u.username AS username
ORDER BY username`

	likedMoviesQuery = `
MATCH (:User {username: $username})-[:LIKES]->(m:Movie)
RETURN DISTINCT m._id AS movieId`

	coLikersQuery = `
MATCH (u1:User {username: $username})-[:LIKES]->(:Movie)<-[:LIKES]-(u2:User)
WHERE u2 <> u1
WITH DISTINCT u2
MATCH (u2)-[:LIKES]->(m:Movie)
RETURN u2.username AS username, collect(DISTINCT m._id) AS movieIds`
)

// store is the consumer interface for the likes graph (ISP).
type store interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]db.Record, error)
}

// Repo implements usecase/social.Repository.
type Repo struct {
	store store
}

// New creates a social repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Likers returns the users other than exclude who like movieID, sorted by username.
func (r *Repo) Likers(ctx context.Context, movieID int, exclude string) ([]string, error) {
	rows, err := r.store.Query(ctx, likersQuery, map[string]any{
		"movieId":  movie.GraphID(movieID),
		"username": exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("likers of %d: %w", movieID, err)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row["username"].(string); ok && name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// LikedMovies returns the graph ids of the movies username likes.
func (r *Repo) LikedMovies(ctx context.Context, username string) (social.Set, error) {
	rows, err := r.store.Query(ctx, likedMoviesQuery, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("likes of %q: %w", username, err)
	}
	set := make(social.Set, len(rows))
	for _, row := range rows {
		if id, ok := graphID(row["movieId"]); ok {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// CoLikers returns every other user sharing at least one liked movie with username,
// each with their complete liked set.
func (r *Repo) CoLikers(ctx context.Context, username string) (map[string]social.Set, error) {
	rows, err := r.store.Query(ctx, coLikersQuery, map[string]any{"username": username})
	if err != nil {
		return nil, fmt.Errorf("co-likers of %q: %w", username, err)
	}
	out := make(map[string]social.Set, len(rows))
	for _, row := range rows {
		name, ok := row["username"].(string)
		if !ok || name == "" {
			continue
		}
		ids, _ := row["movieIds"].([]any)
		set := make(social.Set, len(ids))
		for _, raw := range ids {
			if id, ok := graphID(raw); ok {
				set[id] = struct{}{}
			}
		}
		out[name] = set
	}
	return out, nil
}

// graphID normalizes Movie._id, which loaders store as a string but may store as a number.
func graphID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case int64:
		return strconv.FormatInt(id, 10), true
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	default:
		return "", false
	}
}
