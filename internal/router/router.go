package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-solver/internal/config"
	"go-solver/internal/handlers"
	"go-solver/internal/middleware"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := cfg.CORS.AllowedOrigins
	allowCredentials := cfg.CORS.AllowCredentials
	maxAge := cfg.CORS.MaxAge
	if maxAge <= 0 {
		maxAge = 3600
	}

	if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
		allowedOrigins = nil
		for _, origin := range strings.Split(envOrigins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := "*"
		if len(allowedOrigins) > 0 {
			allowed = ""
			for _, candidate := range allowedOrigins {
				if candidate == origin || candidate == "*" {
					allowed = candidate
					break
				}
			}
		}
		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRouter wires the HTTP API.
func SetupRouter(
	cfg *config.Config,
	batchHandler *handlers.BatchHandler,
	solveHandler *handlers.SolveHandler,
	adviseHandler *handlers.AdviseHandler,
	wsHandler *handlers.WebSocketHandler,
	adminAuthHandler *handlers.AdminAuthHandler,
) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cfg))

	logger := logrus.StandardLogger()
	localhostOnly := middleware.NewLocalhostOnly(logger, cfg.Admin.AllowedIPs)

	// ============ Health Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "solver-backend",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ WebSocket ============
	r.GET("/ws", wsHandler.HandleWebSocket)

	// ============ API Routes ============
	api := r.Group("/api")
	{
		api.POST("/batches", batchHandler.IngestBatchHandler)
		api.GET("/batches", batchHandler.ListBatchesHandler)
		api.GET("/batches/:id", batchHandler.GetBatchHandler)

		api.POST("/solve", solveHandler.SolveBatchHandler)
		api.GET("/solutions", solveHandler.ListSolutionsHandler)
		api.GET("/solutions/:id", solveHandler.GetSolutionHandler)

		api.POST("/storage/advise", adviseHandler.AdviseBatchingHandler)
	}

	// ============ Admin Routes ============
	admin := r.Group("/api/admin")
	admin.Use(localhostOnly.Restrict())
	{
		admin.POST("/login", adminAuthHandler.AdminLoginHandler)

		protected := admin.Group("")
		protected.Use(middleware.AdminAuth(adminAuthHandler.JWTSecret()))
		{
			protected.GET("/config", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"solver":  cfg.Solver,
					"venue":   cfg.Venue,
					"storage": cfg.Storage,
				})
			})
		}
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
