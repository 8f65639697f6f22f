package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxFileSize    = 20 * 1024 * 1024 // 20MB
	DefaultJPEGQuality    = 85
	DefaultRequestTimeout = 60 * time.Second
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Processing ProcessingConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Database   DatabaseConfig
	Supabase   SupabaseConfig
	RabbitMQ   RabbitMQConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ProcessingConfig struct {
	MaxFileSize      int64
	JPEGQuality      int
	StrictSignatures bool
	BulkWorkers      int
}

type RateLimitConfig struct {
	Enabled     bool
	ResizeLimit int
	BulkLimit   int
	Window      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type DatabaseConfig struct {
	URL string
}

type SupabaseConfig struct {
	URL         string
	KEY         string
	BUCKET      string
	KeepOutputs bool
}

type RabbitMQConfig struct {
	URL          string
	HistoryQueue string
}

// Configured reports whether enough Supabase settings are present to talk to storage.
func (s SupabaseConfig) Configured() bool {
	return s.URL != "" && s.KEY != "" && s.BUCKET != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	requestTimeout := getDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Mode: getEnv("GIN_MODE", "release"),
			// Leave headroom above the request budget so the timeout
			// middleware answers before the connection is cut.
			ReadTimeout:    getDuration("READ_TIMEOUT", requestTimeout+5*time.Second),
			WriteTimeout:   getDuration("WRITE_TIMEOUT", requestTimeout+5*time.Second),
			RequestTimeout: requestTimeout,
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
		Processing: ProcessingConfig{
			MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", DefaultMaxFileSize),
			JPEGQuality:      DefaultJPEGQuality,
			StrictSignatures: getEnvAsBool("STRICT_SIGNATURES", true),
			BulkWorkers:      getEnvAsInt("BULK_WORKERS", 4),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvAsBool("RATE_LIMIT_ENABLED", true),
			ResizeLimit: getEnvAsInt("RATE_LIMIT_RESIZE", 20),
			BulkLimit:   getEnvAsInt("RATE_LIMIT_BULK", 5),
			Window:      getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getDuration("RESULT_CACHE_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Supabase: SupabaseConfig{
			URL:         getEnv("SUPABASE_URL", ""),
			KEY:         getEnv("SUPABASE_KEY", ""),
			BUCKET:      getEnv("SUPABASE_BUCKET", ""),
			KeepOutputs: getEnvAsBool("KEEP_OUTPUTS", false),
		},
		RabbitMQ: RabbitMQConfig{
			URL:          getEnv("RABBITMQ_URL", ""),
			HistoryQueue: getEnv("HISTORY_QUEUE", "resize_history"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
