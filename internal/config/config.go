package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	BackendURL              string
	BackendTimeout          time.Duration
	SessionBackend          string
	SessionTTL              time.Duration
	SessionSecret           string
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	CookieSecure            bool
	CookieTTL               time.Duration
	LogoutTimeout           time.Duration
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	AMQPURL                 string
	AMQPQueue               string
	MetricsEnabled          bool
	LogFormat               string
	LogLevel                string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "3000"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 20*time.Second),
		BackendURL:              getEnv("BACKEND_URL", "http://localhost:8080/api"),
		BackendTimeout:          getDuration("BACKEND_TIMEOUT", 15*time.Second),
		SessionBackend:          strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
		SessionTTL:              getDuration("SESSION_TTL", 7*24*time.Hour),
		SessionSecret:           strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getInt("REDIS_DB", 0),
		CookieSecure:            getBool("COOKIE_SECURE", false),
		CookieTTL:               getDuration("COOKIE_TTL", 7*24*time.Hour),
		LogoutTimeout:           getDuration("LOGOUT_TIMEOUT", 5*time.Second),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		AMQPURL:                 strings.TrimSpace(os.Getenv("AMQP_URL")),
		AMQPQueue:               getEnv("AMQP_QUEUE", "console.session.events"),
		MetricsEnabled:          getBool("METRICS_ENABLED", true),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	parsed, err := url.Parse(c.BackendURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_BACKEND=postgres")
		}
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of memory, postgres, redis")
	}

	if c.SessionBackend != SessionBackendMemory && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when sessions are stored outside the process")
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

// getParsed returns fallback when key is unset or does not parse.
func getParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	return getParsed(key, fallback, strconv.Atoi)
}

func getBool(key string, fallback bool) bool {
	return getParsed(key, fallback, strconv.ParseBool)
}

func getDuration(key string, fallback time.Duration) time.Duration {
	return getParsed(key, fallback, time.ParseDuration)
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
