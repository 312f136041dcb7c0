// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, and rate limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with credential scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP)
//  8. Gzip (event streams excluded; compression would buffer them)
//  9. CORS and security headers
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/munstack/conference-backend/internal/config"
	"github.com/munstack/conference-backend/internal/http/handlers"
	"github.com/munstack/conference-backend/internal/http/middleware"
	"github.com/munstack/conference-backend/internal/services"
)

// maxBodyBytes caps request bodies. Docx uploads and chat attachments need
// headroom beyond a typical JSON API.
const maxBodyBytes = 32 << 20

// Deps carries the constructed services the router needs.
type Deps struct {
	Handlers *handlers.Handlers
	Auth     *services.AuthService
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Country"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 8) Response compression. SSE endpoints are excluded: gzip buffers
	// output and would hold events back indefinitely.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{
			`^/events`,
			`^/clause/\d+/stream-format`,
		}),
	))

	// 9) CORS posture (allow all when no origins configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Country"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Country"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := deps.Handlers
	chairOnly := middleware.ChairAuth(func(token string) (string, error) {
		claims, err := deps.Auth.VerifyChairToken(token)
		if err != nil {
			return "", err
		}
		return claims.Username, nil
	})

	// Auth
	r.POST("/login", h.ChairLogin)
	r.POST("/api/login", h.DelegateLogin)
	r.GET("/chair", chairOnly, h.ChairWhoAmI)

	// Clauses
	r.POST("/upload/:committee", h.UploadClause)
	r.GET("/files/:committee", h.ListFiles)
	r.GET("/clause/:id", h.GetClause)
	r.GET("/clause/:id/status", h.ClauseStatus)
	r.POST("/clause/:id/publish", h.PublishClause)
	r.POST("/clause/:id/reject", h.RejectClause)
	r.POST("/clause/:id/unpublish", h.UnpublishClause)
	r.POST("/clause/:id/update-content", h.UpdateClauseContent)
	r.POST("/clause/:id/format", h.InitiateFormat)
	r.GET("/clause/:id/stream-format", h.StreamFormat)
	r.GET("/committee/:committee/published-clause", h.PublishedClause)
	r.GET("/committee/:committee/current-clause", h.CurrentClause)
	r.PUT("/committee/:committee/current-clause", h.OpenDebate)

	// Amendments
	r.POST("/amendments/add", h.AddAmendment)
	r.GET("/amendments", h.ListAmendments)
	r.GET("/amendments/:id", h.GetAmendment)
	r.POST("/amendments/:id/publish", h.PublishAmendment)
	r.POST("/amendments/:id/reject", h.RejectAmendment)
	r.POST("/amendments/:id/approve", h.ApproveAmendment)
	r.POST("/amendments/:id/unpublish", h.UnpublishAmendment)
	r.POST("/amendments/:id/finalize", h.FinalizeAmendment)
	r.POST("/amendments/:id/update-amended-clause", h.UpdateAmendedClause)
	r.POST("/amendments/delete", h.DeleteAllAmendments)
	r.DELETE("/amendments/delete/:id", h.DeleteAmendment)

	// Chat
	r.POST("/messages", h.PostMessage)
	r.DELETE("/messages/:id", h.DeleteMessage)
	r.GET("/groups/:id/messages", h.GroupMessages)
	r.POST("/groups", h.CreateGroup)
	r.GET("/searchgroup/:id", h.SearchGroups)
	r.GET("/delegates", h.Delegates)
	r.GET("/unread/:userID/:groupID", h.GetUnread)
	r.POST("/unread/:userID/:groupID", h.SetUnread)
	r.GET("/chatfiles/:name", h.DownloadChatFile)

	// Committee content and resolutions
	r.GET("/current", h.CurrentContent)
	r.POST("/current", h.SetCurrentContent)
	r.GET("/api/resolutions/:committee", h.Resolutions)
	r.POST("/api/resolutions/:committee", h.AddResolution)

	// Real-time event stream
	r.GET("/events", h.Events)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
