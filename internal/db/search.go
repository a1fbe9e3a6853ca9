package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName   string
	VectorField string
	Vector      []float32
	K           int
	// ScoreAlias names the distance in the reply (AS <alias>); defaults to "vector_score".
	ScoreAlias   string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Score is the raw distance reported by the index.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
