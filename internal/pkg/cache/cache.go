// Package cache wraps the Redis-compatible cache used for rate-limit storage
// and health reporting.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	fiberredis "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/OrgPilot/internal/pkg/config"
)

// New creates a client for cfg and logs whether the server answered. A down
// cache is not fatal at startup.
func New(cfg config.CacheConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if pong, err := client.Ping(ctx).Result(); err != nil {
		log.Warnf("[Cache] Could not connect to cache at %s: %v", cfg.Addr(), err)
	} else {
		log.Infof("[Cache] Connected to cache: %s", pong)
	}
	return client
}

// Healthy reports whether the cache answers a ping.
func Healthy(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// NewStorage returns Redis-backed fiber storage on the given logical
// database, or an error when the cache is unreachable.
func NewStorage(cfg config.CacheConfig, database int) (storage fiber.Storage, err error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("cache port: %w", err)
	}
	// the storage driver panics when its initial ping fails
	defer func() {
		if r := recover(); r != nil {
			storage = nil
			err = fmt.Errorf("cache storage: %v", r)
		}
	}()
	return fiberredis.New(fiberredis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: database,
		Reset:    false,
	}), nil
}
