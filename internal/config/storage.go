package config

import (
	"time"

	"github.com/BVG-Design/brokercompare-sub001/internal/database"
	"github.com/BVG-Design/brokercompare-sub001/internal/ratelimit"
)

type Database struct {
	DataDir         string        `env:"DATA_DIR" envDefault:"./data"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// Pool converts the settings into database pool limits
func (d Database) Pool() database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns: d.MaxOpenConns,
		MaxIdleConns: d.MaxIdleConns,
		MaxLifetime:  d.ConnMaxLifetime,
	}
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD" json:"-"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type RateLimit struct {
	PerMinute       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	BurstMultiplier int           `env:"RATE_LIMIT_BURST_MULTIPLIER" envDefault:"2"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"10m"`
}

// Limiter converts the settings into rate limiter configuration
func (r RateLimit) Limiter() ratelimit.Config {
	return ratelimit.Config{
		IPLimitPerMin:   r.PerMinute,
		BurstMultiplier: r.BurstMultiplier,
		CleanupInterval: r.CleanupInterval,
	}
}

type Leaderboard struct {
	CacheTTL     time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"10m"`
	DefaultLimit int           `env:"LEADERBOARD_DEFAULT_LIMIT" envDefault:"25"`
}
