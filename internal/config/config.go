package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Auth       AuthConfig
	BruteForce BruteForceConfig
	RateLimit  RateLimitConfig
	Links      LinkConfig
	Redis      RedisConfig
	Email      EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	BaseURL         string // public origin used to build survey URLs
	AllowedOrigins  []string
	TrustedProxies  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret           string
	SessionExpiry       time.Duration
	CookieDomain        string
	CookieSecure        bool
	CookieSameSite      string
	CleanupInterval     time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

// BruteForceConfig controls per-email login lockout
type BruteForceConfig struct {
	MaxAttempts   int
	AttemptWindow time.Duration
	LockDuration  time.Duration
	ReloadWindow  time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig controls the fixed-window request limiters
type RateLimitConfig struct {
	LoginRequests           int
	LoginWindow             time.Duration
	RegisterRequests        int
	RegisterWindow          time.Duration
	ResponseRequests        int
	ResponseWindow          time.Duration
	PublicRequestsPerMinute int
	SweepInterval           time.Duration
}

type LinkConfig struct {
	TTL                 time.Duration
	ShortCodeLength     int
	FallbackCodeLength  int
	MaxShortCodeRetries int
}

// RedisConfig is optional; an empty URL keeps limiter state in process memory
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "surveyhub"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             env,
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			BaseURL:         strings.TrimRight(getEnv("BASE_URL", "http://localhost:5173"), "/"),
			AllowedOrigins:  parseAllowedOrigins(env),
			TrustedProxies:  getEnvAsSlice("TRUSTED_PROXIES", nil),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:           jwtSecret,
			SessionExpiry:       getEnvAsDuration("SESSION_EXPIRY", 24*time.Hour),
			CookieDomain:        getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:        getEnvAsBool("COOKIE_SECURE", env == "production"),
			CookieSameSite:      getEnv("COOKIE_SAMESITE", "lax"),
			CleanupInterval:     getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 1*time.Hour),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 200),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		BruteForce: BruteForceConfig{
			MaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			AttemptWindow: getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
			LockDuration:  getEnvAsDuration("LOGIN_LOCK_DURATION", 30*time.Minute),
			ReloadWindow:  getEnvAsDuration("LOGIN_RELOAD_WINDOW", 1*time.Hour),
			SweepInterval: getEnvAsDuration("LOGIN_SWEEP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			LoginRequests:           getEnvAsInt("RATE_LIMIT_LOGIN_REQUESTS", 10),
			LoginWindow:             getEnvAsDuration("RATE_LIMIT_LOGIN_WINDOW", 1*time.Minute),
			RegisterRequests:        getEnvAsInt("RATE_LIMIT_REGISTER_REQUESTS", 5),
			RegisterWindow:          getEnvAsDuration("RATE_LIMIT_REGISTER_WINDOW", 1*time.Minute),
			ResponseRequests:        getEnvAsInt("RATE_LIMIT_RESPONSE_REQUESTS", 20),
			ResponseWindow:          getEnvAsDuration("RATE_LIMIT_RESPONSE_WINDOW", 1*time.Minute),
			PublicRequestsPerMinute: getEnvAsInt("RATE_LIMIT_PUBLIC_RPM", 120),
			SweepInterval:           getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 1*time.Minute),
		},
		Links: LinkConfig{
			TTL:                 getEnvAsDuration("LINK_TTL", 7*24*time.Hour),
			ShortCodeLength:     getEnvAsInt("SHORT_CODE_LENGTH", 6),
			FallbackCodeLength:  getEnvAsInt("SHORT_CODE_FALLBACK_LENGTH", 8),
			MaxShortCodeRetries: getEnvAsInt("SHORT_CODE_MAX_RETRIES", 10),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "surveyhub:"),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@surveyhub.local"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BruteForce.MaxAttempts < 1 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	if c.Links.ShortCodeLength < 4 || c.Links.ShortCodeLength > 10 {
		return fmt.Errorf("SHORT_CODE_LENGTH must be between 4 and 10 (got %d)", c.Links.ShortCodeLength)
	}
	if c.Links.FallbackCodeLength < 4 || c.Links.FallbackCodeLength > 10 {
		return fmt.Errorf("SHORT_CODE_FALLBACK_LENGTH must be between 4 and 10 (got %d)", c.Links.FallbackCodeLength)
	}
	if c.RateLimit.LoginRequests < 1 || c.RateLimit.RegisterRequests < 1 || c.RateLimit.ResponseRequests < 1 {
		return fmt.Errorf("rate limit request counts must be positive")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for the session signing secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
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

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsSlice("ALLOWED_ORIGINS", []string{})
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
