package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// HGet returns a single hash field as raw bytes. A missing key or field is db.ErrKeyNotFound.
func (s *Store) HGet(ctx context.Context, key, field string) ([]byte, error) {
	return guard.Do(ctx, s.guard, func(ctx context.Context) ([]byte, error) {
		cmd := s.b().Hget().Key(key).Field(field).Build()
		data, err := s.do(ctx, cmd).AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				return nil, &db.Error{Op: db.OpHGet, Err: db.ErrKeyNotFound}
			}
			return nil, &db.Error{Op: db.OpHGet, Err: err}
		}
		return data, nil
	})
}

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		cmd := s.b().Hset().Key(key).FieldValue()
		for k, v := range fields {
			cmd = cmd.FieldValue(k, v)
		}
		if err := s.do(ctx, cmd.Build()).Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: err}
		}
		return nil
	})
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return guard.Do(ctx, s.guard, func(ctx context.Context) (bool, error) {
		cmd := s.b().Exists().Key(key).Build()
		count, err := s.do(ctx, cmd).AsInt64()
		if err != nil {
			return false, &db.Error{Op: db.OpExists, Err: err}
		}
		return count > 0, nil
	})
}
