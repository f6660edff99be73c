package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const minProductionSecretLength = 32

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CORS        CORSConfig      `yaml:"cors"`
	Seed        SeedConfig      `yaml:"seed"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Backend        string        `yaml:"backend"`
	URL            string        `yaml:"url"`
	SQLitePath     string        `yaml:"sqlite_path"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTExpiry     time.Duration `yaml:"jwt_expiry"`
	RefreshExpiry time.Duration `yaml:"refresh_expiry"`
	Issuer        string        `yaml:"issuer"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

type RateLimitConfig struct {
	PublicPerMinute   int      `yaml:"public_per_minute"`
	LoginPer15Minutes int      `yaml:"login_per_15_minutes"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
}

type CORSConfig struct {
	AllowedOrigins  []string `yaml:"allowed_origins"`
	AllowAllOrigins bool     `yaml:"-"`
}

// SeedConfig describes the accounts and sample data written on first start.
type SeedConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	UserUsername  string `yaml:"user_username"`
	UserPassword  string `yaml:"user_password"`
	SampleEvents  bool   `yaml:"sample_events"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Defaults returns the configuration used when nothing else is supplied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Backend:        "sqlite",
			SQLitePath:     "conflicts.db",
			MaxConnections: 10,
			MinConnections: 1,
			AcquireTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			JWTExpiry:     24 * time.Hour,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "conflicts-api",
			BcryptCost:    12,
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   60,
			LoginPer15Minutes: 5,
		},
		Seed: SeedConfig{
			Enabled:       true,
			AdminUsername: "admin",
			AdminPassword: "admin123",
			UserUsername:  "user",
			UserPassword:  "user123",
			SampleEvents:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "conflicts-api",
			SampleRate:  1.0,
		},
		Environment: "development",
	}
}

// Load reads configuration from .env and the environment on top of Defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile layers, in increasing precedence: Defaults, the YAML file at path
// (skipped when path is empty), a .env file in the working directory and the
// process environment.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.CORS.AllowAllOrigins = !cfg.IsProduction() && len(cfg.CORS.AllowedOrigins) == 0

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	collect(envInt("SERVER_PORT", &cfg.Server.Port))

	cfg.Database.Backend = getEnv("DATABASE_BACKEND", cfg.Database.Backend)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)
	collect(envInt("DATABASE_MAX_CONNECTIONS", &cfg.Database.MaxConnections))
	collect(envInt("DATABASE_MIN_CONNECTIONS", &cfg.Database.MinConnections))
	collect(envDuration("DATABASE_ACQUIRE_TIMEOUT", &cfg.Database.AcquireTimeout))

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	collect(envHours("JWT_EXPIRY_HOURS", &cfg.Auth.JWTExpiry))
	collect(envHours("JWT_REFRESH_EXPIRY_HOURS", &cfg.Auth.RefreshExpiry))
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)
	collect(envInt("BCRYPT_COST", &cfg.Auth.BcryptCost))

	collect(envInt("RATE_LIMIT_PUBLIC", &cfg.RateLimit.PublicPerMinute))
	collect(envInt("RATE_LIMIT_LOGIN", &cfg.RateLimit.LoginPer15Minutes))
	if v, ok := os.LookupEnv("TRUSTED_PROXY_CIDRS"); ok {
		cfg.RateLimit.TrustedProxyCIDRs = splitList(v)
	}
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORS.AllowedOrigins = splitList(v)
	}

	collect(envBool("SEED_ENABLED", &cfg.Seed.Enabled))
	cfg.Seed.AdminUsername = getEnv("SEED_ADMIN_USERNAME", cfg.Seed.AdminUsername)
	cfg.Seed.AdminPassword = getEnv("SEED_ADMIN_PASSWORD", cfg.Seed.AdminPassword)
	cfg.Seed.UserUsername = getEnv("SEED_USER_USERNAME", cfg.Seed.UserUsername)
	cfg.Seed.UserPassword = getEnv("SEED_USER_PASSWORD", cfg.Seed.UserPassword)
	collect(envBool("SEED_SAMPLE_EVENTS", &cfg.Seed.SampleEvents))

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	collect(envBool("TRACING_ENABLED", &cfg.Tracing.Enabled))
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.ServiceName = getEnv("TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.OTLPEndpoint = getEnv("TRACING_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	collect(envFloat("TRACING_SAMPLE_RATE", &cfg.Tracing.SampleRate))

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	return errors.Join(errs...)
}

// Validate checks the settings that would otherwise fail late at runtime.
func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Backend) {
	case "postgres", "postgresql", "pg":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_BACKEND is postgres")
		}
	case "sqlite", "sqlite3":
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_BACKEND is sqlite")
		}
	default:
		return fmt.Errorf("DATABASE_BACKEND must be postgres or sqlite, got %q", c.Database.Backend)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < minProductionSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minProductionSecretLength)
	}
	if c.IsProduction() && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}
	if c.Auth.JWTExpiry <= 0 || c.Auth.RefreshExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS and JWT_REFRESH_EXPIRY_HOURS must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment reports whether internal error details may be exposed.
func (c Config) IsDevelopment() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "test"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, dst *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

func envBool(key string, dst *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

func envFloat(key string, dst *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

// envDuration accepts Go duration syntax or a bare number of seconds.
func envDuration(key string, dst *time.Duration) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

func envHours(key string, dst *time.Duration) error {
	hours := 0
	if err := envInt(key, &hours); err != nil || os.Getenv(key) == "" {
		return err
	}
	*dst = time.Duration(hours) * time.Hour
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
