package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
	"github.com/kailas-cloud/cinegraph/internal/domain/vector"
)

const defaultScoreAlias = "vector_score"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Entries come back nearest first with the raw index distance as Score.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.VectorField == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	alias := q.ScoreAlias
	if alias == "" {
		alias = defaultScoreAlias
	}
	args := buildKNNArgs(q, alias)

	return guard.Do(ctx, s.guard, func(ctx context.Context) (*db.SearchResult, error) {
		cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
		raw, err := s.do(ctx, cmd).ToArray()
		if err != nil {
			if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
				return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
			}
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		return parseKNNResult(raw, alias)
	})
}

func buildKNNArgs(q *db.KNNQuery, alias string) []string {
	query := fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, q.VectorField, alias)
	args := []string{q.IndexName, query}

	if len(q.ReturnFields) > 0 {
		fields := append([]string{alias}, q.ReturnFields...)
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	return append(args,
		"SORTBY", alias, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", string(vector.Encode(q.Vector)),
		"DIALECT", "2",
	)
}

func parseKNNResult(raw []rueidis.RedisMessage, alias string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}
		if scoreStr, ok := entry.Fields[alias]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = d
			}
			delete(entry.Fields, alias)
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
