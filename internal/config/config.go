package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	AllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	NotifyQueueSize int

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// Load builds a Config from environment variables.
func Load() Config {
	return Config{
		Environment:       GetString("APP_ENV", "development"),
		Port:              GetString("PORT", "3000"),
		LogLevel:          GetString("LOG_LEVEL", "info"),
		DatabaseURL:       GetString("DATABASE_URL", ""),
		DBMaxOpenConns:    GetInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    GetInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: time.Duration(GetInt("DB_CONN_MAX_LIFETIME_MINUTES", 60)) * time.Minute,
		JWTSecret:         GetString("JWT_SECRET", ""),
		TokenTTL:          time.Duration(GetInt("TOKEN_TTL_HOURS", 168)) * time.Hour,
		AllowedOrigins:    allowedOrigins(),
		RateLimitRequests: GetInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   time.Duration(GetInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		RedisAddr:         GetString("REDIS_ADDR", ""),
		RedisPassword:     GetString("REDIS_PASSWORD", ""),
		RedisDB:           GetInt("REDIS_DB", 0),
		NotifyQueueSize:   GetInt("NOTIFY_QUEUE_SIZE", 256),
		AdminEmail:        GetString("ADMIN_EMAIL", ""),
		AdminPassword:     GetString("ADMIN_PASSWORD", ""),
		AdminName:         GetString("ADMIN_NAME", "Administrator"),
	}
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func allowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowed := os.Getenv("ALLOWED_ORIGINS"); allowed != "" {
		for _, origin := range strings.Split(allowed, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}
