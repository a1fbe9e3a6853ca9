package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// TDigestCreate creates an empty t-digest at key. An existing sketch is db.ErrDigestExists.
func (s *Store) TDigestCreate(ctx context.Context, key string) error {
	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		cmd := s.b().Arbitrary("TDIGEST.CREATE").Keys(key).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "already exists") {
				return db.ErrDigestExists
			}
			return &db.Error{Op: db.OpTDigestCreate, Err: err}
		}
		return nil
	})
}

// TDigestAdd adds observations to the sketch at key. A missing sketch is db.ErrKeyNotFound.
func (s *Store) TDigestAdd(ctx context.Context, key string, values ...float64) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]string, len(values))
	for i, v := range values {
		args[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		cmd := s.b().Arbitrary("TDIGEST.ADD").Keys(key).Args(args...).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			if isRedisErr(err, "does not exist") {
				return &db.Error{Op: db.OpTDigestAdd, Err: db.ErrKeyNotFound}
			}
			return &db.Error{Op: db.OpTDigestAdd, Err: err}
		}
		return nil
	})
}

// TDigestQuantile estimates the given quantiles. An empty sketch yields NaN values.
func (s *Store) TDigestQuantile(ctx context.Context, key string, quantiles ...float64) ([]float64, error) {
	if len(quantiles) == 0 {
		return nil, fmt.Errorf("at least one quantile is required")
	}
	args := make([]string, len(quantiles))
	for i, q := range quantiles {
		args[i] = strconv.FormatFloat(q, 'g', -1, 64)
	}

	return guard.Do(ctx, s.guard, func(ctx context.Context) ([]float64, error) {
		cmd := s.b().Arbitrary("TDIGEST.QUANTILE").Keys(key).Args(args...).Build()
		raw, err := s.do(ctx, cmd).ToArray()
		if err != nil {
			if isRedisErr(err, "does not exist") {
				return nil, &db.Error{Op: db.OpTDigestQuantile, Err: db.ErrKeyNotFound}
			}
			return nil, &db.Error{Op: db.OpTDigestQuantile, Err: err}
		}

		out := make([]float64, len(raw))
		for i := range raw {
			v, err := raw[i].AsFloat64()
			if err != nil {
				return nil, &db.Error{Op: db.OpTDigestQuantile, Err: fmt.Errorf("parse quantile %d: %w", i, err)}
			}
			out[i] = v
		}
		return out, nil
	})
}
