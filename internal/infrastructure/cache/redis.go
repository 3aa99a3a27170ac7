package cache

import (
	"context"
	"fmt"
	"time"

	"starshop/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NewRedis connects to redis and pings it once.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", client.Options().Addr))
	return client, nil
}
