package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	AdminKeySalt string

	// Verified sign-in
	IdentityTokenSecret string
	AllowedEmailDomain  string

	RedisURL      string
	TallyCacheTTL time.Duration

	RequestTimeout     time.Duration
	MaxCodesPerBatch   int
	CodeInsertAttempts int

	LogLevel  string
	LogFormat string
}

// Defaults for optional settings
const (
	DefaultPort               = 3318
	DefaultTallyCacheTTL      = 5 * time.Second
	DefaultRequestTimeout     = 5 * time.Second
	DefaultMaxCodesPerBatch   = 100
	DefaultCodeInsertAttempts = 8
)

// ParseFlags validates flags and fills the rest from the environment.
// A .env file in the working directory is loaded first if present;
// variables already set in the environment win over it.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Missing .env is normal outside development
	_ = godotenv.Load()

	fs := flag.NewFlagSet("campus-ballot", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the tally cache (optional)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.IdentityTokenSecret, "identity-secret", "", "Identity token secret (prefer env)")

	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", DefaultPort)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envString("DATABASE_TYPE", "sqlite")
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("invalid DATABASE_TYPE %q (want sqlite or postgres)", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	// Verified sign-in is disabled without a secret
	if cfg.IdentityTokenSecret == "" {
		cfg.IdentityTokenSecret = os.Getenv("IDENTITY_TOKEN_SECRET")
	}
	cfg.AllowedEmailDomain = os.Getenv("ALLOWED_EMAIL_DOMAIN")

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	var err error
	if cfg.TallyCacheTTL, err = envDuration("TALLY_CACHE_TTL", DefaultTallyCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxCodesPerBatch, err = envInt("MAX_CODES_PER_BATCH", DefaultMaxCodesPerBatch); err != nil {
		return Config{}, err
	}
	if cfg.MaxCodesPerBatch < 1 {
		return Config{}, errors.New("MAX_CODES_PER_BATCH must be at least 1")
	}
	cfg.CodeInsertAttempts = DefaultCodeInsertAttempts

	if cfg.LogLevel == "" {
		cfg.LogLevel = envString("LOG_LEVEL", "info")
	}
	cfg.LogFormat = envString("LOG_FORMAT", "json")

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
