// Package api wires together all HTTP routes for the warehouse operations
// backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are public operational endpoints.
//   - /api/auth/login is public but rate limited aggressively, and runs
//     under the audit middleware so failed attempts are recorded with the
//     email from the request body.
//   - Everything else under /api requires a valid JWT; the audit middleware
//     runs after auth so events carry the authenticated actor.
//   - /api/admin/* additionally requires the admin role.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/warehouse-ops/warehouse-ops/internal/audit"
	"github.com/warehouse-ops/warehouse-ops/internal/config"
	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
	"github.com/warehouse-ops/warehouse-ops/internal/middleware"
)

// BackgroundServices holds resources that must be stopped during graceful
// shutdown. The caller (cmd/server) is responsible for calling Shutdown()
// after the HTTP server has drained in-flight requests.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	shipper      audit.Shipper
	redisClient  *redis.Client
}

// Shutdown stops background goroutines and flushes buffered audit entries.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()

	sqlxDB := sqlx.NewDb(db, "postgres")
	userRepo := repositories.NewUserRepository(sqlxDB)
	orderRepo := repositories.NewOrderRepository(sqlxDB)
	locationRepo := repositories.NewLocationRepository(sqlxDB)
	lookupRepo := repositories.NewLookupRepository(sqlxDB)
	auditRepo := repositories.NewAuditRepository(db)

	resolver := audit.NewResolver(lookupRepo)

	// The audit sink and shipper degrade to nil when auditing is disabled;
	// the orchestrator tolerates both.
	var auditSink middleware.AuditSink
	var shipper audit.Shipper
	if cfg.Audit.Enabled {
		auditSink = auditRepo
		if len(cfg.Audit.Shippers) > 0 {
			ms, err := audit.NewMultiShipper(shipperConfigs(cfg.Audit.Shippers))
			if err != nil {
				return nil, nil, fmt.Errorf("failed to configure audit shippers: %w", err)
			}
			shipper = ms
		}
	}
	auditMW := middleware.AuditMiddlewareWithShipper(auditSink, resolver, shipper)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	bg := &BackgroundServices{shipper: shipper}

	// Rate limiting. Login endpoints always use the strict in-memory
	// limiter; general traffic uses Redis-backed GCRA when configured so
	// limits hold across replicas.
	authRateLimiter := middleware.NewRateLimiter(authRateLimitConfig(cfg))
	bg.rateLimiters = append(bg.rateLimiters, authRateLimiter)

	var generalRateLimit gin.HandlerFunc
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		bg.redisClient = redisClient
		generalRateLimit = middleware.RedisRateLimitMiddleware(
			middleware.NewRedisRateLimiter(redisClient, generalRateLimitConfig(cfg)))
		slog.Info("rate limiting backed by redis", "address", cfg.Redis.Address)
	} else {
		generalRateLimiter := middleware.NewRateLimiter(generalRateLimitConfig(cfg))
		bg.rateLimiters = append(bg.rateLimiters, generalRateLimiter)
		generalRateLimit = middleware.RateLimitMiddleware(generalRateLimiter)
	}

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, bg.redisClient))
	router.GET("/version", versionHandler())

	authHandlers := NewAuthHandlers(userRepo, cfg.Auth.TokenTTL)
	orderHandlers := NewOrderHandlers(orderRepo)
	waveHandlers := NewWaveHandlers(orderRepo)
	locationHandlers := NewLocationHandlers(locationRepo)
	floorHandlers := NewFloorHandlers(locationRepo, orderRepo)
	userHandlers := NewUserHandlers(userRepo, cfg.Auth.BcryptCost)
	auditLogHandlers := NewAuditLogHandlers(auditRepo)

	// Public auth endpoints. The audit middleware runs here without auth so
	// login attempts (including failures) are recorded.
	authGroup := router.Group("/api/auth")
	authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
	authGroup.Use(auditMW)
	{
		authGroup.POST("/login", authHandlers.Login)
	}

	// Authenticated endpoints.
	apiGroup := router.Group("/api")
	apiGroup.Use(generalRateLimit)
	apiGroup.Use(middleware.AuthMiddleware(userRepo))
	apiGroup.Use(auditMW)
	{
		apiGroup.POST("/auth/logout", authHandlers.Logout)
		apiGroup.GET("/auth/me", authHandlers.Me)

		orders := apiGroup.Group("/orders")
		{
			orders.POST("/:orderId/claim", orderHandlers.Claim)
			orders.POST("/:orderId/unclaim", orderHandlers.Unclaim)
			orders.POST("/:orderId/continue", orderHandlers.Continue)
			orders.POST("/:orderId/pick", orderHandlers.Pick)
			orders.POST("/:orderId/undo-pick", orderHandlers.UndoPick)
			orders.POST("/:orderId/complete", orderHandlers.Complete)
			orders.POST("/:orderId/verify-packing", orderHandlers.VerifyPacking)
			orders.POST("/:orderId/cancel", orderHandlers.Cancel)
			orders.GET("/:orderId", orderHandlers.Get)
		}

		waves := apiGroup.Group("/waves")
		{
			waves.POST("", waveHandlers.Create)
			waves.POST("/:id/release", waveHandlers.Release)
			waves.POST("/:id/complete", waveHandlers.Complete)
		}

		locations := apiGroup.Group("/locations")
		{
			locations.GET("/:locationId", locationHandlers.Get)
			locations.POST("", locationHandlers.Create)
			locations.PUT("/:locationId", locationHandlers.Update)
			locations.DELETE("/:locationId", locationHandlers.Delete)
		}

		apiGroup.POST("/inventory/adjust", floorHandlers.AdjustInventory)
		apiGroup.POST("/putaway", floorHandlers.Putaway)
		apiGroup.POST("/cycle-counts", floorHandlers.CreateCycleCount)
		apiGroup.POST("/cycle-counts/:id/complete", floorHandlers.CompleteCycleCount)
		apiGroup.POST("/shipments", floorHandlers.CreateShipment)
		apiGroup.POST("/exports", floorHandlers.GenerateExport)

		// Supervisor floor management.
		supervisorGroup := apiGroup.Group("")
		supervisorGroup.Use(middleware.RequireRole("admin", "supervisor"))
		{
			supervisorGroup.POST("/zones/assign", floorHandlers.AssignZone)
			supervisorGroup.POST("/zones/release", floorHandlers.ReleaseZone)
			supervisorGroup.POST("/zones/rebalance", floorHandlers.RebalanceZones)
			supervisorGroup.POST("/slotting/apply", floorHandlers.ApplySlotting)
		}

		// Admin-only surfaces: account management and the audit viewer.
		adminGroup := apiGroup.Group("")
		adminGroup.Use(middleware.RequireRole("admin"))
		{
			adminGroup.GET("/users", userHandlers.List)
			adminGroup.GET("/users/:userId", userHandlers.Get)
			adminGroup.POST("/users", userHandlers.Create)
			adminGroup.PUT("/users/:userId", userHandlers.Update)
			adminGroup.DELETE("/users/:userId", userHandlers.Delete)

			adminGroup.POST("/roles/assignments", userHandlers.GrantRole)
			adminGroup.DELETE("/roles/assignments", userHandlers.RevokeRole)

			adminGroup.GET("/admin/audit-logs", auditLogHandlers.List)
			adminGroup.GET("/admin/audit-logs/:id", auditLogHandlers.Get)
		}
	}

	return router, bg, nil
}

// shipperConfigs converts the viper-bound audit shipper settings into the
// audit package's configuration shape.
func shipperConfigs(configs []config.AuditShipperConfig) []audit.ShipperConfig {
	out := make([]audit.ShipperConfig, 0, len(configs))
	for _, c := range configs {
		sc := audit.ShipperConfig{
			Enabled: c.Enabled,
			Type:    c.Type,
		}
		if c.Webhook != nil {
			sc.Webhook = &audit.WebhookConfig{
				URL:           c.Webhook.URL,
				Headers:       c.Webhook.Headers,
				Timeout:       time.Duration(c.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     c.Webhook.BatchSize,
				FlushInterval: time.Duration(c.Webhook.FlushInterval) * time.Second,
			}
		}
		if c.File != nil {
			sc.File = &audit.FileConfig{
				Path:       c.File.Path,
				MaxSizeMB:  c.File.MaxSizeMB,
				MaxBackups: c.File.MaxBackups,
			}
		}
		out = append(out, sc)
	}
	return out
}

func generalRateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
		rl.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	}
	if cfg.Security.RateLimiting.Burst > 0 {
		rl.BurstSize = cfg.Security.RateLimiting.Burst
	}
	return rl
}

func authRateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.AuthRateLimitConfig()
	if cfg.Security.RateLimiting.AuthRequestsPerMinute > 0 {
		rl.RequestsPerMinute = cfg.Security.RateLimiting.AuthRequestsPerMinute
	}
	return rl
}

// healthCheckHandler returns the health status of the service.
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service. Unlike the
// liveness probe (/health), this also checks Redis when rate limiting
// depends on it.
func readinessHandler(db *sql.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version.
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the
	// global handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS for the operations dashboard.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
