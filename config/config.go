package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	DEFAULT_PREDICT_BASE_URL = "http://127.0.0.1:3000"
	DEFAULT_PREDICTD_ADDR    = ":3000"
	DEFAULT_OUTCOMES_TOPIC   = "analysis-outcomes"
	DEFAULT_LOG_TABLE        = "PredictionLog"
)

type Config struct {
	Env string

	PredictBaseURL string
	PredictTimeout time.Duration
	LogLevel       string

	PredictdAddr       string
	CORSAllowedOrigins []string

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	CacheTTL       time.Duration

	AWSEndpoint        string
	AWSRegion          string
	PredictionLogTable string

	KafkaBroker   string
	OutcomesTopic string

	HealthCheckInterval time.Duration
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load builds a Config from the process environment. Call LoadEnv first when
// values should come from an env file.
func Load() Config {
	env := getEnv("APP_ENV", "dev")

	defaultTimeout := 60 * time.Second
	if env == "production" {
		defaultTimeout = 10 * time.Second
	}

	return Config{
		Env:                 env,
		PredictBaseURL:      strings.TrimRight(getEnv("PREDICT_BASE_URL", DEFAULT_PREDICT_BASE_URL), "/"),
		PredictTimeout:      getDuration("PREDICT_TIMEOUT", defaultTimeout),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		PredictdAddr:        getEnv("PREDICTD_ADDR", DEFAULT_PREDICTD_ADDR),
		CORSAllowedOrigins:  getList("CORS_ALLOWED_ORIGINS"),
		ValkeyAddress:       getEnv("VALKEY_INIT_ADDRESS", ""),
		ValkeyPassword:      getEnv("VALKEY_PASSWORD", ""),
		ValkeyTLS:           getEnv("VALKEY_TLS", "") == "true",
		CacheTTL:            getDuration("PREDICTION_CACHE_TTL", 24*time.Hour),
		AWSEndpoint:         getEnv("AWS_ENDPOINT", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-west-2"),
		PredictionLogTable:  getEnv("PREDICTION_LOG_TABLE", ""),
		KafkaBroker:         getEnv("KAFKA_BROKER", ""),
		OutcomesTopic:       getEnv("KAFKA_TOPIC_ANALYSIS_OUTCOMES", DEFAULT_OUTCOMES_TOPIC),
		HealthCheckInterval: getDuration("HEALTHCHECK_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("[Config] Invalid duration, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Duration("default", defaultValue))
		return defaultValue
	}
	return d
}

func getList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
