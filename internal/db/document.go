package db

import "context"

// DocumentStore is the catalog document store (MongoDB).
type DocumentStore interface {
	Pinger
	// Find decodes every matching document into out, a pointer to a slice.
	Find(ctx context.Context, collection string, filter any, opts FindOptions, out any) error
	// FindOne decodes the first match into out; no match is ErrKeyNotFound.
	FindOne(ctx context.Context, collection string, filter, projection any, out any) error
	// Aggregate runs pipeline and decodes every result into out, a pointer to a slice.
	Aggregate(ctx context.Context, collection string, pipeline any, out any) error
}

// FindOptions shapes a Find call. Zero values are ignored.
type FindOptions struct {
	Projection any
	Sort       any
	Limit      int64
}
