package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/monitoring"
)

type Config struct {
	Server      Server
	Log         Log
	Database    Database
	Redis       Redis
	RateLimit   RateLimit
	Leaderboard Leaderboard
}

type Server struct {
	Port               string   `env:"PORT" envDefault:"8080"`
	GinMode            string   `env:"GIN_MODE" envDefault:"release"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	EnableHSTS     bool          `env:"ENABLE_HSTS" envDefault:"false"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	// Responses at least this large are gzip compressed. Zero disables compression.
	CompressMinBytes int `env:"COMPRESS_MIN_BYTES" envDefault:"1024"`

	// Finalized assessments leave the in-memory registry after this long.
	FinalizedRetention time.Duration `env:"FINALIZED_RETENTION" envDefault:"1h"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file, then the process environment
func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	config.Server.CORSAllowedOrigins = cleanOrigins(config.Server.CORSAllowedOrigins)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	switch c.Log.Format {
	case monitoring.FormatJSON, monitoring.FormatText:
	default:
		return invalid("LOG_FORMAT", fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("LOG_LEVEL", fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if c.Server.Port == "" {
		return invalid("PORT", "port must not be empty")
	}
	if c.Server.RequestTimeout < 0 {
		return invalid("REQUEST_TIMEOUT", "timeout must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return invalid("MAX_BODY_BYTES", "body limit must be positive")
	}
	if c.Server.CompressMinBytes < 0 {
		return invalid("COMPRESS_MIN_BYTES", "threshold must not be negative")
	}
	if c.Server.FinalizedRetention <= 0 {
		return invalid("FINALIZED_RETENTION", "retention must be positive")
	}
	if c.Server.SweepInterval <= 0 {
		return invalid("SWEEP_INTERVAL", "sweep interval must be positive")
	}

	if c.RateLimit.PerMinute <= 0 {
		return invalid("RATE_LIMIT_PER_MIN", "rate limit must be positive")
	}
	if c.RateLimit.BurstMultiplier < 1 {
		return invalid("RATE_LIMIT_BURST_MULTIPLIER", "burst multiplier must be at least 1")
	}

	if c.Leaderboard.CacheTTL <= 0 {
		return invalid("LEADERBOARD_CACHE_TTL", "cache ttl must be positive")
	}
	if c.Leaderboard.DefaultLimit <= 0 {
		return invalid("LEADERBOARD_DEFAULT_LIMIT", "default limit must be positive")
	}

	if c.Database.MaxOpenConns <= 0 {
		return invalid("DB_MAX_OPEN_CONNS", "pool size must be positive")
	}

	return nil
}

func invalid(variable, reason string) error {
	return apperrors.NewConfigurationError(fmt.Sprintf("%s: %s", variable, reason), nil)
}

// AllowsAllOrigins reports whether CORS is open to every origin
func (s Server) AllowsAllOrigins() bool {
	for _, origin := range s.CORSAllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return len(s.CORSAllowedOrigins) == 0
}

func cleanOrigins(origins []string) []string {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			cleaned = append(cleaned, origin)
		}
	}
	return cleaned
}
