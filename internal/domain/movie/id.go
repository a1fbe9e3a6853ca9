package movie

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cinegraph/internal/domain"
)

// EmbeddingKeyPrefix is the Redis hash prefix of plot embeddings.
const EmbeddingKeyPrefix = "movie:"

// ParseID converts an external id (route segment, graph property) into a catalog id.
func ParseID(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, domain.InvalidInputf("movie id is required")
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.InvalidInputf("movie id %q is not an integer", raw)
	}
	return id, nil
}

// EmbeddingKey returns the Redis key holding the embedding of id.
func EmbeddingKey(id int) string {
	return EmbeddingKeyPrefix + strconv.Itoa(id)
}

// IDFromEmbeddingKey parses "movie:<id>" back into a catalog id.
func IDFromEmbeddingKey(key string) (int, error) {
	raw, ok := strings.CutPrefix(key, EmbeddingKeyPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: key %q lacks prefix %q", domain.ErrDataInconsistency, key, EmbeddingKeyPrefix)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q has a non-integer id", domain.ErrDataInconsistency, key)
	}
	return id, nil
}

// GraphID returns the string form used for Movie._id in the graph store.
func GraphID(id int) string {
	return strconv.Itoa(id)
}

// IDFromGraph parses a graph Movie._id back into a catalog id.
func IDFromGraph(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: graph movie id %q is not an integer", domain.ErrDataInconsistency, raw)
	}
	return id, nil
}
