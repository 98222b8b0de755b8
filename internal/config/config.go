package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	AutoMigrate      bool
	JWTSecret        string
	CronSecret       string
	MaxFileSizeBytes int64
	BusinessTimezone string

	CollectorMarkers   []string
	CorsAllowedOrigins []string

	RabbitMQURL        string
	RabbitMQWorkerMode string
	NATSURL            string

	EchoSuppressWindow  time.Duration
	WSHeartbeatInterval time.Duration
	CacheStaleAfter     time.Duration

	ShopifyBaseURL     string
	ShopifyAccessToken string
	ShopifyAPIVersion  string
	ImportLookback     time.Duration
	ImportTimeout      time.Duration

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
	ImageCDNBaseURL            string
}

func Load() Config {
	cfg := Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8090"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		AutoMigrate:      getEnvBool("AUTO_MIGRATE", true),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CronSecret:       getEnv("CRON_SECRET", ""),
		MaxFileSizeBytes: getEnvInt64("MAX_FILE_SIZE", 8*1024*1024),
		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "Africa/Cairo"),

		CollectorMarkers:   splitCSV(getEnv("COLLECTOR_MARKERS", "")),
		CorsAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),

		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode: getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		NATSURL:            getEnv("NATS_URL", ""),

		EchoSuppressWindow:  getEnvDuration("ECHO_SUPPRESS_WINDOW", 3*time.Second),
		WSHeartbeatInterval: getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		CacheStaleAfter:     getEnvDuration("CACHE_STALE_AFTER", 24*time.Hour),

		ShopifyBaseURL:     strings.TrimRight(getEnv("SHOPIFY_BASE_URL", ""), "/"),
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyAPIVersion:  getEnv("SHOPIFY_API_VERSION", "2024-01"),
		ImportLookback:     getEnvDuration("IMPORT_LOOKBACK", 72*time.Hour),
		ImportTimeout:      getEnvDuration("IMPORT_TIMEOUT", 20*time.Second),

		// Object store (Cloudflare R2 / S3-compatible)
		ObjectStoreEndpoint:        getEnvFirst([]string{"OBJECT_STORE_ENDPOINT", "R2_S3_ENDPOINT"}, ""),
		ObjectStoreRegion:          getEnvFirst([]string{"OBJECT_STORE_REGION", "R2_REGION"}, "auto"),
		ObjectStoreAccessKeyID:     getEnvFirst([]string{"OBJECT_STORE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"}, ""),
		ObjectStoreSecretAccessKey: getEnvFirst([]string{"OBJECT_STORE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"}, ""),
		ObjectStoreBucket:          getEnvFirst([]string{"OBJECT_STORE_BUCKET", "R2_BUCKET"}, ""),
		ObjectStorePublicBaseURL:   getEnvFirst([]string{"OBJECT_STORE_PUBLIC_BASE_URL", "R2_PUBLIC_BASE_URL"}, ""),
		ObjectStoreStorageClass:    getEnvFirst([]string{"OBJECT_STORE_STORAGE_CLASS", "R2_STORAGE_CLASS"}, "STANDARD"),
		ImageCDNBaseURL:            strings.TrimRight(getEnv("IMAGE_CDN_BASE_URL", ""), "/"),
	}

	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 8 * 1024 * 1024
	}
	if cfg.EchoSuppressWindow < 0 {
		cfg.EchoSuppressWindow = 0
	}

	// Back-compat: allow R2_ACCOUNT_ID -> endpoint
	if strings.TrimSpace(cfg.ObjectStoreEndpoint) == "" {
		accountID := strings.TrimSpace(os.Getenv("R2_ACCOUNT_ID"))
		if accountID != "" {
			cfg.ObjectStoreEndpoint = "https://" + accountID + ".r2.cloudflarestorage.com"
		}
	}

	return cfg
}

func (c Config) ObjectStoreEnabled() bool {
	return c.ObjectStoreBucket != "" && c.ObjectStoreEndpoint != "" && c.ObjectStorePublicBaseURL != ""
}

func (c Config) ImportEnabled() bool {
	return c.ShopifyBaseURL != "" && c.ShopifyAccessToken != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
