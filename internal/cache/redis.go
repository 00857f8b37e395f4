// Package cache реализует кеш JSON-значений поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/slot-gate/internal/config"
)

const keyPrefix = "slotgate:"

// Cache — кеш в Redis. Ключи хранятся с префиксом приложения.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Get читает значение key в result. Возвращает false, если ключа нет.
func (c *Cache) Get(key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(context.Background(), keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет value в JSON на время expiration.
func (c *Cache) Set(key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(context.Background(), keyPrefix+key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(context.Background(), keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}
