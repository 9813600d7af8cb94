// Package httpapi wires the Gin transport to the ticket intake service. The
// HTTP surface is deliberately small: the webhook the workflow engine posts
// classified questions to, plus liveness and metrics endpoints. Cross-cutting
// concerns (correlation IDs, logging, recovery, metrics, rate limiting, CORS,
// compression) live in middleware and are composed here in a fixed order.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aiflownow/support-bot/internal/config"
	"github.com/aiflownow/support-bot/internal/httpapi/handlers"
	"github.com/aiflownow/support-bot/internal/httpapi/middleware"
)

// RegisterRoutes attaches all middleware and endpoints to the given engine.
//
// Middleware order:
//  1. RequestID: generate/propagate correlation id
//  2. Logger: structured access logs
//  3. Recovery: panics to JSON 500, after the logger so they carry context
//  4. Body size limit (1 MiB)
//  5. Prometheus metrics and the /metrics endpoint
//  6. Per-IP token-bucket rate limiter
//  7. Response compression
//  8. CORS (allow-all by default, allowlist when configured)
func RegisterRoutes(r *gin.Engine, tickets handlers.TicketIntake, announcer handlers.TicketAnnouncer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression))

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
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

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", handlers.Health)

	h := handlers.New(tickets, announcer)
	webhook := r.Group("/webhook")
	webhook.Use(middleware.BearerAuth(cfg.Workflow.APIKey))
	{
		webhook.POST("/ticket", h.CreateWebhookTicket)
	}
}

// limitBody caps the request body size using http.MaxBytesReader; reads past
// the cap error downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
