package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrDigestExists  = errors.New("db: t-digest already exists")
)

// Op constants name the backend command for error context.
const (
	OpCreateIndex     = "FT.CREATE"
	OpIndexInfo       = "FT.INFO"
	OpSearch          = "FT.SEARCH"
	OpHGet            = "HGET"
	OpHSet            = "HSET"
	OpExists          = "EXISTS"
	OpGet             = "GET"
	OpSet             = "SET"
	OpTDigestCreate   = "TDIGEST.CREATE"
	OpTDigestAdd      = "TDIGEST.ADD"
	OpTDigestQuantile = "TDIGEST.QUANTILE"

	OpFind      = "find"
	OpFindOne   = "findOne"
	OpAggregate = "aggregate"

	OpCypher = "cypher"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsBenign reports errors that describe data state rather than a store failure.
// They never trip a circuit breaker and are not reported as unavailability.
func IsBenign(err error) bool {
	return errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrIndexNotFound) ||
		errors.Is(err, ErrIndexExists) ||
		errors.Is(err, ErrDigestExists)
}
