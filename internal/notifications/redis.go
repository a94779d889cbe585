package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
)

// RedisProvider keeps a capped list of recent alerts in Redis for
// downstream consumers.
type RedisProvider struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisProvider connects and pings the configured server.
func NewRedisProvider(cfg *config.RedisConfig) (*RedisProvider, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = "honeycomb:decisions"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 1000
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisProvider{client: client, key: key, maxLen: maxLen}, nil
}

func (rp *RedisProvider) Name() string {
	return "redis"
}

func (rp *RedisProvider) IsEnabled() bool {
	return rp.client != nil
}

// Send pushes the notification to the head of the list and trims it to
// maxLen entries.
func (rp *RedisProvider) Send(ctx context.Context, notification *Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	pipe := rp.client.TxPipeline()
	pipe.LPush(ctx, rp.key, payload)
	pipe.LTrim(ctx, rp.key, 0, rp.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push %s: %w", rp.key, err)
	}
	return nil
}

// Close releases the client connection pool.
func (rp *RedisProvider) Close() error {
	return rp.client.Close()
}
