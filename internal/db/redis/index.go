package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	args := buildCreateArgs(def)

	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "index already exists") {
				return db.ErrIndexExists
			}
			return &db.Error{Op: db.OpCreateIndex, Err: err}
		}
		return nil
	})
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	return guard.Do(ctx, s.guard, func(ctx context.Context) (bool, error) {
		cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
				return false, nil
			}
			return false, &db.Error{Op: db.OpIndexInfo, Err: err}
		}
		return true, nil
	})
}

func buildCreateArgs(idx *db.IndexDefinition) []string {
	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		args = append(args, buildVectorFieldArgs(&idx.Fields[i])...)
	}
	return args
}

func buildVectorFieldArgs(f *db.IndexField) []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorFlat
	}

	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}

	if algo == db.VectorHNSW {
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	}

	result := make([]string, 0, 4+len(attrs))
	result = append(result, f.Name, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	result = append(result, attrs...)
	return result
}
