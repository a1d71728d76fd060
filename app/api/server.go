package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bondlens/bondlens/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Read endpoints
	r.GET("/windows/:date/consensus", handler.GetWindowConsensus)
	r.GET("/windows/:date/runs", handler.GetWindowRuns)
	r.GET("/windows/:date/assessments", handler.GetWindowAssessments)
	r.GET("/windows/:date/documents", handler.GetWindowDocuments)
	r.GET("/documents/:id", handler.GetDocument)

	// Health and status endpoints
	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.GetStats)

	// Write endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		authed := r.Group("/")
		authed.Use(authMiddleware(apiAccessKey))
		{
			authed.POST("/documents", handler.IngestDocuments)
			authed.POST("/windows/:date/synthesize", handler.SynthesizeWindow)
		}
		slog.Info("Write endpoints enabled with authentication")
	} else {
		slog.Warn("Write endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"consensus":   "/windows/<date>/consensus",
			"runs":        "/windows/<date>/runs",
			"assessments": "/windows/<date>/assessments",
			"documents":   "/windows/<date>/documents",
			"document":    "/documents/<id>",
			"health":      "/health",
			"stats":       "/stats",
		}

		if apiAccessKey != "" {
			endpoints["ingest"] = "/documents (POST, requires X-API-Key header)"
			endpoints["synthesize"] = "/windows/<date>/synthesize (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "BondLens",
			"version":     cfg.GetVersion(),
			"description": "Bond-market commentary analysis and consensus aggregation",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for write endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
