// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/AccelByte/extend-habit-challenge/pkg/calendar"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v (this is normal in production)", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	for name, port := range map[string]int{
		"HTTP_PORT":    c.HTTPPort,
		"GRPC_PORT":    c.GRPCPort,
		"METRICS_PORT": c.MetricsPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
	}

	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q (must be redis, postgres or memory)", c.StoreBackend)
	}

	if c.RedisMaxRetries < 1 {
		return fmt.Errorf("invalid REDIS_MAX_RETRIES: %d (must be at least 1)", c.RedisMaxRetries)
	}
	if c.LeftStatsTTL < 0 {
		return fmt.Errorf("invalid LEFT_MEMBER_STATS_TTL: %v (must not be negative)", c.LeftStatsTTL)
	}

	if err := calendar.ValidateOffset(c.DefaultTZOffsetMinutes); err != nil {
		return fmt.Errorf("invalid DEFAULT_TZ_OFFSET_MINUTES: %w", err)
	}

	if c.RecalcInterval < 0 {
		return fmt.Errorf("invalid RECALC_INTERVAL: %v (must not be negative)", c.RecalcInterval)
	}
	if c.RecalcWorkers < 1 {
		return fmt.Errorf("invalid RECALC_WORKERS: %d (must be at least 1)", c.RecalcWorkers)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %v", c.RequestTimeout)
	}

	return nil
}
