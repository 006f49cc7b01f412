// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

// Store backends selectable with STORE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"HabitChallengeService"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// ============================================================
	// Storage configuration
	// ============================================================
	StoreBackend string `env:"STORE_BACKEND" envDefault:"redis"`

	RedisHost         string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int           `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`
	RedisKeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"habit_challenge:"`
	LeftStatsTTL      time.Duration `env:"LEFT_MEMBER_STATS_TTL" envDefault:"0s"`

	DatabaseURL string `env:"DATABASE_URL"`

	// ============================================================
	// Challenge configuration
	// ============================================================
	CatalogPath            string        `env:"CATALOG_PATH"`
	DefaultTZOffsetMinutes int           `env:"DEFAULT_TZ_OFFSET_MINUTES" envDefault:"0"`
	RecalcInterval         time.Duration `env:"RECALC_INTERVAL" envDefault:"0s"`
	RecalcWorkers          int           `env:"RECALC_WORKERS" envDefault:"4"`

	// ============================================================
	// HTTP API configuration
	// ============================================================
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled    bool   `env:"OTEL_ENABLED" envDefault:"true"`
	ZipkinEndpoint string `env:"ZIPKIN_ENDPOINT"`
}
