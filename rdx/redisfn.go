package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradedesk/logging"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Conn is the shared client, set by Init.
var Conn *redis.Client

// Init connects and pings Redis.
func Init(ctx context.Context, addr, password string) error {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	Conn = c
	logging.Logger.Info("connected to Redis", zap.String("addr", addr))
	return nil
}

// Close releases the client.
func Close() {
	if Conn != nil {
		_ = Conn.Close()
	}
}

func RdxGet(ctx context.Context, key string) (string, error) {
	v, err := Conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	return Conn.Set(ctx, key, value, ttl).Err()
}

func RdxDel(ctx context.Context, keys ...string) error {
	return Conn.Del(ctx, keys...).Err()
}

// GetJSON decodes a cached value into dst. found is false on a miss.
func GetJSON(ctx context.Context, key string, dst interface{}) (found bool, err error) {
	raw, err := RdxGet(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		// stale shape; drop it
		_ = RdxDel(ctx, key)
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return SetWithExpiry(ctx, key, string(data), ttl)
}
