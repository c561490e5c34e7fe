package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

// RedisStore keeps the same two JSON documents under <prefix>:ledger and
// <prefix>:state.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "firstblood"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(name string) string { return r.prefix + ":" + name }

func (r *RedisStore) LoadLedger(ctx context.Context) ([]model.Event, bool, error) {
	var out []model.Event
	ok, err := r.get(ctx, r.key("ledger"), &out)
	return out, ok, err
}

func (r *RedisStore) SaveLedger(ctx context.Context, ledger []model.Event) error {
	if ledger == nil {
		ledger = []model.Event{}
	}
	return r.set(ctx, r.key("ledger"), ledger)
}

func (r *RedisStore) LoadRender(ctx context.Context) (RenderState, bool, error) {
	var st RenderState
	ok, err := r.get(ctx, r.key("state"), &st)
	return st, ok, err
}

func (r *RedisStore) SaveRender(ctx context.Context, st RenderState) error {
	if st.LatestIDs == nil {
		st.LatestIDs = []string{}
	}
	return r.set(ctx, r.key("state"), st)
}

func (r *RedisStore) Close() error { return r.rdb.Close() }

func (r *RedisStore) get(ctx context.Context, key string, out any) (bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	return true, nil
}

func (r *RedisStore) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, key, err)
	}
	if err := r.rdb.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrWrite, key, err)
	}
	return nil
}
