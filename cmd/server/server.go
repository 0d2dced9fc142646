package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/config"
	"github.com/BVG-Design/brokercompare-sub001/internal/database"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/leaderboard"
	"github.com/BVG-Design/brokercompare-sub001/internal/middleware"
	"github.com/BVG-Design/brokercompare-sub001/internal/monitoring"
	"github.com/BVG-Design/brokercompare-sub001/internal/ratelimit"
	"github.com/BVG-Design/brokercompare-sub001/internal/security"
)

const version = "1.0.0"

// server carries the dependencies of the HTTP handlers
type server struct {
	registry    *assessment.Registry
	leaderboard *leaderboard.Service
	limiter     *ratelimit.RateLimiter
	db          *database.DB
	redis       *ratelimit.RedisClient
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
}

func newRouter(s *server, cfg config.Server) (*gin.Engine, error) {
	r := gin.New()

	// Monitoring first so every request is measured, then errors and panics
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(security.SecurityHeadersMiddleware(cfg.EnableHSTS))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.Use(s.limiter.IPRateLimitMiddleware())
	api.Use(security.RequestTimeout(cfg.RequestTimeout))
	api.Use(security.LimitBody(cfg.MaxBodyBytes))
	api.Use(security.RequireJSON())
	if cfg.CompressMinBytes > 0 {
		compressionConfig := middleware.DefaultCompressionConfig()
		compressionConfig.MinSize = cfg.CompressMinBytes
		compression, err := middleware.NewCompressionMiddleware(compressionConfig)
		if err != nil {
			return nil, err
		}
		api.Use(compression.Handler())
	}
	{
		api.GET("/categories", s.handleCategories)
		api.GET("/rate-limit", s.limiter.HandleRateLimitStatus())

		assessments := api.Group("/assessments")
		assessments.POST("", s.handleCreateAssessment)
		assessments.GET("/:id", s.handleGetAssessment)
		assessments.DELETE("/:id", s.handleDiscardAssessment)
		assessments.POST("/:id/features", s.handleAddFeature)
		assessments.PATCH("/:id/features/:featureId", s.handleUpdateFeature)
		assessments.DELETE("/:id/features/:featureId", s.handleRemoveFeature)
		assessments.PUT("/:id/listing", s.handleSetListing)
		assessments.POST("/:id/validate", s.handleValidate)
		assessments.POST("/:id/finalize", s.handleFinalize)

		api.GET("/snapshots/:id", s.handleGetSnapshot)
		api.GET("/leaderboard", s.handleLeaderboard)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apperrors.Response{
			Code:     "NotFound",
			Category: apperrors.CategoryNotFound,
			Message:  "route not found",
		})
	})

	return r, nil
}

func corsConfig(cfg config.Server) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AllowsAllOrigins() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return corsCfg
}
