// Package httpapi wires the HTTP transport (Gin) to the dispatcher, the card
// services, and the audit-trail views. It centralizes cross-cutting concerns:
// tracing, correlation IDs, structured logging, panic recovery, metrics,
// compression, and CORS.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-card-bot/internal/bot"
	"github.com/tbourn/go-card-bot/internal/config"
	"github.com/tbourn/go-card-bot/internal/domain"
	"github.com/tbourn/go-card-bot/internal/http/handlers"
	"github.com/tbourn/go-card-bot/internal/http/middleware"
	"github.com/tbourn/go-card-bot/internal/repo"
	"github.com/tbourn/go-card-bot/internal/services"
)

// lookupReaderShim adapts the repository free functions to the
// handlers.LookupReader interface. This keeps handlers decoupled from the
// concrete repo package while reusing existing functions.
type lookupReaderShim struct {
	db *gorm.DB
}

// Count proxies repo.CountLookups.
func (s lookupReaderShim) Count(ctx context.Context) (int64, error) {
	return repo.CountLookups(ctx, s.db)
}

// Page proxies repo.ListLookupsPage.
func (s lookupReaderShim) Page(ctx context.Context, offset, limit int) ([]domain.LookupRecord, error) {
	return repo.ListLookupsPage(ctx, s.db, offset, limit)
}

// Stats proxies repo.Stats.
func (s lookupReaderShim) Stats(ctx context.Context) (*repo.LookupStats, error) {
	return repo.Stats(ctx, s.db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned public API under the configured base path.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip compression
//  8. CORS
func RegisterRoutes(r *gin.Engine, db *gorm.DB, disp *bot.Dispatcher, cardSvc *services.CardService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB — inbound events are small)
	r.Use(limitBody(64 << 10))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	msgH := &handlers.MessageHandler{Bot: disp}
	cardH := &handlers.CardHandler{Svc: cardSvc}
	lookupH := &handlers.LookupHandler{Reader: lookupReaderShim{db: db}}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Inbound chat events
		api.POST("/messages", msgH.HandleMessage)

		// Direct card operations
		api.GET("/cards/random", cardH.RandomCard)
		api.GET("/cards/:id/rulings", cardH.Rulings)

		// Audit trail
		api.GET("/lookups", lookupH.List)
		api.GET("/stats", lookupH.Stats)
	}
}

// limitBody caps the request body for all endpoints using http.MaxBytesReader.
// Requests exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
