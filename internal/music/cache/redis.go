package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/keshon/jukebox/internal/music/track"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "jukebox:stream:"

// redisClient is the part of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis is a Store shared between bot instances.
type Redis struct {
	client redisClient
	log    *zap.Logger
}

// RedisOptions configures the connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{client: client, log: log}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*track.StreamInfo, bool) {
	raw, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("stream cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var info track.StreamInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		r.log.Warn("stream cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &info, true
}

func (r *Redis) Set(ctx context.Context, key string, info *track.StreamInfo, ttl time.Duration) {
	if info == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(info)
	if err != nil {
		r.log.Warn("failed to encode stream info", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, redisKey(key), raw, ttl).Err(); err != nil {
		r.log.Warn("stream cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return keyPrefix + key
}
