package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/cache"
	"github.com/BVG-Design/brokercompare-sub001/internal/config"
	"github.com/BVG-Design/brokercompare-sub001/internal/database"
	"github.com/BVG-Design/brokercompare-sub001/internal/encoding"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/leaderboard"
	"github.com/BVG-Design/brokercompare-sub001/internal/monitoring"
	"github.com/BVG-Design/brokercompare-sub001/internal/ratelimit"
)

const (
	redisCacheNamespace = "brokerfit"
	shutdownTimeout     = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := monitoring.NewLogger(monitoring.LoggerOptions{
		Level:  monitoring.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	slog.SetDefault(appLogger.Logger)

	gin.SetMode(cfg.Server.GinMode)

	db, err := database.NewDBWithPool(cfg.Database.DataDir, cfg.Database.Pool())
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer apperrors.SafeClose(db, "database")

	redisClient, err := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory state", "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	appMetrics := monitoring.NewMetrics()

	var cacheStore cache.Store = cache.NewCache(cfg.Leaderboard.CacheTTL, 2*cfg.Leaderboard.CacheTTL)
	if redisClient.IsEnabled() {
		cacheStore = cache.NewRedisCache(redisClient.GetClient(), redisCacheNamespace, cfg.Leaderboard.CacheTTL)
	}

	repo := database.NewRepository(db, encoding.NewJSONCodec())
	leaderboardCache := leaderboard.NewLeaderboardCache(cacheStore, cfg.Leaderboard.CacheTTL, appMetrics)
	leaderboardService := leaderboard.NewService(repo, leaderboardCache, cfg.Leaderboard.DefaultLimit)

	limiter := ratelimit.NewRateLimiter(redisClient, cfg.RateLimit.Limiter(), appMetrics)
	defer limiter.Close()

	s := &server{
		registry:    assessment.NewRegistry(),
		leaderboard: leaderboardService,
		limiter:     limiter,
		db:          db,
		redis:       redisClient,
		metrics:     appMetrics,
		logger:      appLogger,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go s.registry.RunSweeper(sweepCtx, cfg.Server.SweepInterval, cfg.Server.FinalizedRetention)

	router, err := newRouter(s, cfg.Server)
	if err != nil {
		slog.Error("Failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.SystemLogger("startup", "listening on :"+cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited", "open_assessments", s.registry.Len())
}
