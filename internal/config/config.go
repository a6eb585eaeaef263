package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey     string
	ServiceIdentity string
	InitialAdmin    string

	MaxMetadataBytes int
	MaxPerIdentity   int
	MinFee           int64

	SubmitMaxAttempts    int
	SubmitBackoffMS      int
	SubmitTimeoutSeconds int
	NonceTTLSeconds      int
	FallbackCost         int64
	MaxCost              int64

	PolicyPath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		ServiceIdentity:        envDefault("SERVICE_IDENTITY", "did:intellitrust:service-submitter-0001"),
		InitialAdmin:           envDefault("INITIAL_ADMIN", "did:intellitrust:root-administrator-0001"),
		MaxMetadataBytes:       envIntDefault("MAX_METADATA_BYTES", 10000),
		MaxPerIdentity:         envIntDefault("MAX_PER_IDENTITY", 1000),
		MinFee:                 envInt64Default("MIN_FEE", 0),
		SubmitMaxAttempts:      envIntDefault("SUBMIT_MAX_ATTEMPTS", 3),
		SubmitBackoffMS:        envIntDefault("SUBMIT_BACKOFF_MS", 2000),
		SubmitTimeoutSeconds:   envIntDefault("SUBMIT_TIMEOUT_SECONDS", 30),
		NonceTTLSeconds:        envIntDefault("NONCE_TTL_SECONDS", 300),
		FallbackCost:           envInt64Default("FALLBACK_COST", 300000),
		MaxCost:                envInt64Default("MAX_COST", 5000000),
		PolicyPath:             os.Getenv("POLICY_PATH"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envInt64Default(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) SubmitBackoff() time.Duration {
	if c.SubmitBackoffMS <= 0 {
		return 0
	}
	return time.Duration(c.SubmitBackoffMS) * time.Millisecond
}

func (c Config) SubmitTimeout() time.Duration {
	if c.SubmitTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

func (c Config) NonceTTL() time.Duration {
	if c.NonceTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.NonceTTLSeconds) * time.Second
}
