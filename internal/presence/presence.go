package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/turntable-server/turntable/internal/config"
	"github.com/turntable-server/turntable/internal/domain"
)

// Client reads player connectivity state from the presence cache. The
// realtime server owns these keys; this side only ever asks whether a player
// is online and which mode they are in.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New connects to the presence cache.
func New(cfg *config.RedisConfig, logger *slog.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewWithClient wraps an existing redis client. Used by tests.
func NewWithClient(rdb *redis.Client, logger *slog.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func key(userID int) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

// Online reports whether the player currently holds a session on the
// realtime server.
func (c *Client) Online(ctx context.Context, userID int) (bool, error) {
	n, err := c.rdb.Exists(ctx, key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("checking presence: %w", err)
	}
	return n > 0, nil
}

// Mode returns the game mode the player's session is currently in.
func (c *Client) Mode(ctx context.Context, userID int) (domain.GameMode, error) {
	raw, err := c.rdb.HGet(ctx, key(userID), "mode").Result()
	if err == redis.Nil {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetching presence mode: %w", err)
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing presence mode %q: %w", raw, err)
	}
	return domain.ParseGameMode(v)
}
