package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/fraudwatch/internal/generator"
	"github.com/mbd888/fraudwatch/internal/health"
	"github.com/mbd888/fraudwatch/internal/metrics"
	"github.com/mbd888/fraudwatch/internal/risk"
)

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Dashboard
	s.router.GET("/", s.indexHandler)
	s.router.GET("/feed", feedPageHandler)
	if dir := s.cfg.FrontendDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			s.router.Static("/static", dir)
		}
	}

	// WebSocket analysis feed
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// Scoring
	riskHandler := risk.NewHandler(s.scorer, s.history, s.realtimeHub)
	riskHandler.RegisterRoutes(s.router)

	// V1 API group
	v1 := s.router.Group("/v1")
	generator.NewHandler(s.generator).RegisterRoutes(v1)
	riskHandler.RegisterHistoryRoutes(v1)
	v1.POST("/simulate/batch", s.simulateBatchHandler)
	v1.GET("/feed/stats", s.feedStatsHandler)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no route for " + c.Request.Method + " " + c.Request.URL.Path})
	})
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`
	Uptime    string          `json:"uptime,omitempty"`
	Checks    []health.Status `json:"checks"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.health.CheckAll(c.Request.Context())

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   Version,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Checks:    statuses,
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// indexHandler serves the bundled frontend when present, otherwise an API banner.
func (s *Server) indexHandler(c *gin.Context) {
	if dir := s.cfg.FrontendDir; dir != "" {
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Fraud Detection API is running. Frontend not found.",
		"version": Version,
		"feed":    "/feed",
		"ws":      "/ws",
	})
}

func (s *Server) feedStatsHandler(c *gin.Context) {
	feed := gin.H{"enabled": s.feed != nil}
	if s.feed != nil {
		published, skipped := s.feed.Stats()
		feed["running"] = s.feed.Running()
		feed["source"] = s.feed.SourceName()
		feed["published"] = published
		feed["skipped_ticks"] = skipped
	}
	c.JSON(http.StatusOK, gin.H{
		"hub":  s.realtimeHub.Stats(),
		"feed": feed,
	})
}
