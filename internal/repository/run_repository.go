package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lmartins/quizchain/pkg/domain"

	"github.com/go-redis/redis/v8"
)

// RunRepository persists chain-run records so callers can poll a run started
// in the background and operators can inspect recent activity.
type RunRepository interface {
	SaveRun(ctx context.Context, run *domain.ChainRun) error
	GetRun(ctx context.Context, id string) (*domain.ChainRun, error)
	ListRecent(ctx context.Context, limit int64) ([]*domain.ChainRun, error)
	PurgeExpired(ctx context.Context) (int, error)
}

type runRedisRepo struct {
	rdb       *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewRunRepository(rdb *redis.Client, retention time.Duration) RunRepository {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &runRedisRepo{rdb: rdb, retention: retention, now: time.Now}
}

func (r *runRedisRepo) keyRunsHash() string    { return "quizchain:runs" }
func (r *runRedisRepo) keyRecentIndex() string { return "quizchain:runs:recent" }
func (r *runRedisRepo) keyTTLIndex() string    { return "quizchain:runs:ttl" }

func (r *runRedisRepo) SaveRun(ctx context.Context, run *domain.ChainRun) error {
	b, _ := json.Marshal(run)
	if err := r.rdb.HSet(ctx, r.keyRunsHash(), run.ID, string(b)).Err(); err != nil {
		return fmt.Errorf("redis HSET run: %w", err)
	}
	now := r.now()
	if err := r.rdb.ZAdd(ctx, r.keyRecentIndex(), &redis.Z{
		Score:  float64(now.UTC().Unix()),
		Member: run.ID,
	}).Err(); err != nil {
		return fmt.Errorf("redis ZADD recent: %w", err)
	}
	if err := r.rdb.ZAdd(ctx, r.keyTTLIndex(), &redis.Z{
		Score:  float64(now.Add(r.retention).UTC().Unix()),
		Member: run.ID,
	}).Err(); err != nil {
		return fmt.Errorf("redis ZADD ttl: %w", err)
	}
	return nil
}

func (r *runRedisRepo) GetRun(ctx context.Context, id string) (*domain.ChainRun, error) {
	js, err := r.rdb.HGet(ctx, r.keyRunsHash(), id).Result()
	if err == redis.Nil || js == "" {
		return nil, fmt.Errorf("not-found")
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET run: %w", err)
	}
	var run domain.ChainRun
	if err := json.Unmarshal([]byte(js), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

func (r *runRedisRepo) ListRecent(ctx context.Context, limit int64) ([]*domain.ChainRun, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := r.rdb.ZRevRange(ctx, r.keyRecentIndex(), 0, limit-1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis ZREVRANGE recent: %w", err)
	}
	runs := make([]*domain.ChainRun, 0, len(ids))
	for _, id := range ids {
		run, err := r.GetRun(ctx, id)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// PurgeExpired removes runs whose retention window has passed, from the hash
// and both indexes. Returns how many were removed.
func (r *runRedisRepo) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := fmt.Sprintf("%d", r.now().UTC().Unix())
	ids, err := r.rdb.ZRangeByScore(ctx, r.keyTTLIndex(), &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("redis ZRANGEBYSCORE ttl: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	members := make([]interface{}, len(ids))
	fields := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id
		fields[i] = id
	}
	if err := r.rdb.HDel(ctx, r.keyRunsHash(), fields...).Err(); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("redis HDEL runs: %w", err)
	}
	_ = r.rdb.ZRem(ctx, r.keyRecentIndex(), members...).Err()
	if err := r.rdb.ZRem(ctx, r.keyTTLIndex(), members...).Err(); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("redis ZREM ttl: %w", err)
	}
	return len(ids), nil
}
