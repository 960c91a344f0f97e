package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

const runKeyPrefix = "media:run:"

// RunRepositoryRedis stores run snapshots as JSON strings that expire after a
// TTL.
type RunRepositoryRedis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRunRepositoryRedis constructs the repository.
func NewRunRepositoryRedis(client redis.Cmdable, ttl time.Duration) *RunRepositoryRedis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunRepositoryRedis{client: client, ttl: ttl}
}

// RunKey returns the Redis key of a run.
func RunKey(id string) string {
	return runKeyPrefix + id
}

// Save overwrites the snapshot and refreshes its TTL.
func (r *RunRepositoryRedis) Save(ctx context.Context, rec domain.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := r.client.Set(ctx, RunKey(rec.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set run: %w", err)
	}
	return nil
}

// Get returns the snapshot of id.
func (r *RunRepositoryRedis) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	data, err := r.client.Get(ctx, RunKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get run: %w", err)
	}
	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &rec, nil
}

// Delete removes the snapshot of id.
func (r *RunRepositoryRedis) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, RunKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del run: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PruneBefore is a no-op: keys expire on their own.
func (r *RunRepositoryRedis) PruneBefore(context.Context, time.Time) (int, error) {
	return 0, nil
}

var _ domain.RunRepository = (*RunRepositoryRedis)(nil)
