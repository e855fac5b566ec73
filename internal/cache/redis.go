package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forPelevin/fallacycheck/internal/types"
)

const defaultKeyPrefix = "fallacycheck:video:"

// Redis shares cached transcripts across processes. Expiry is delegated to
// the key TTL.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// ConnectRedis dials addr and verifies the connection with PING.
func ConnectRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) key(videoID string) string { return r.prefix + videoID }

func (r *Redis) Get(ctx context.Context, videoID string) (types.VideoData, bool, error) {
	b, err := r.client.Get(ctx, r.key(videoID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.VideoData{}, false, nil
	}
	if err != nil {
		return types.VideoData{}, false, fmt.Errorf("redis get %s: %w", videoID, err)
	}
	var data types.VideoData
	if err := json.Unmarshal(b, &data); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on refetch.
		return types.VideoData{}, false, nil
	}
	return data, true, nil
}

func (r *Redis) Put(ctx context.Context, videoID string, data types.VideoData, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal video data: %w", err)
	}
	if err := r.client.Set(ctx, r.key(videoID), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", videoID, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
