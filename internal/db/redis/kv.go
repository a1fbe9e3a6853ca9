package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
)

// Get returns the value of key. A missing key is db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return guard.Do(ctx, s.guard, func(ctx context.Context) ([]byte, error) {
		cmd := s.b().Get().Key(key).Build()
		data, err := s.do(ctx, cmd).AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
			}
			return nil, &db.Error{Op: db.OpGet, Err: err}
		}
		return data, nil
	})
}

// Set stores value under key. A positive ttl sets an expiry in whole seconds.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return guard.Run(ctx, s.guard, func(ctx context.Context) error {
		var cmd rueidis.Completed
		if secs := int64(ttl / time.Second); secs > 0 {
			cmd = s.b().Set().Key(key).Value(rueidis.BinaryString(value)).ExSeconds(secs).Build()
		} else {
			cmd = s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
		}
		if err := s.do(ctx, cmd).Error(); err != nil {
			return &db.Error{Op: db.OpSet, Err: err}
		}
		return nil
	})
}
