// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-habit-challenge/internal/config"
	"github.com/AccelByte/extend-habit-challenge/pkg/service"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// InitStore opens the configured store backend.
//
// redis:    challenge metadata, membership, the confirmation log and stats live in Redis.
// postgres: the same data in four tables, created on boot when missing.
// memory:   process-local, for local runs and tests only.
func InitStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := InitRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logrus.Infof("using redis store (prefix %q)", cfg.RedisKeyPrefix)
		return service.NewRedisStore(client, service.RedisStoreConfig{
			KeyPrefix:    cfg.RedisKeyPrefix,
			LeftStatsTTL: cfg.LeftStatsTTL,
		}), nil

	case config.BackendPostgres:
		pool, err := service.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := service.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logrus.Info("using postgres store")
		return store, nil

	case config.BackendMemory:
		logrus.Warn("using in-memory store; data is lost on restart")
		return service.NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// InitRedis connects to Redis, retrying the initial ping with exponential backoff.
func InitRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost + ":" + cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(cfg.RedisRetryDelayMs) * time.Millisecond
	retry := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.RedisMaxRetries)), ctx)

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		retry,
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s:%s: %w", cfg.RedisHost, cfg.RedisPort, err)
	}

	logrus.Info("Redis client initialized")
	return client, nil
}
