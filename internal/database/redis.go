package database

import (
	"context"
	"fmt"
	"time"

	"nahb-server/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient инициализирует клиент Redis (хранилище токенов).
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis (ping failed): %w", err)
	}
	return client, nil
}
