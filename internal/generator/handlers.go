package generator

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/fraudwatch/internal/traces"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Request limits for generation endpoints.
const (
	DefaultBatchSize = 10
	MaxBatchSize     = 1000
	MaxSessionLength = 500
)

// Handler provides HTTP endpoints for synthetic data generation
type Handler struct {
	gen *Generator
}

// NewHandler creates a new generator handler
func NewHandler(gen *Generator) *Handler {
	return &Handler{gen: gen}
}

// RegisterRoutes sets up generator routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions/generate", h.GenerateTransactions)
	r.GET("/sessions/:profile", h.GenerateSession)
	r.GET("/merchants/stats", h.MerchantStats)
	r.GET("/simulate/peak-hours", h.PeakHours)
}

// GenerateTransactions handles GET /transactions/generate?count=&profile=
func (h *Handler) GenerateTransactions(c *gin.Context) {
	count, ok := parseCount(c, "count", DefaultBatchSize, MaxBatchSize)
	if !ok {
		return
	}

	_, span := traces.StartSpan(c.Request.Context(), "generator.batch", traces.Count(count))
	defer span.End()

	profile := c.Query("profile")
	if profile == "" {
		txs, err := h.gen.Batch(count)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_count", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
		return
	}

	if _, known := LookupProfile(ProfileName(profile)); !known {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unknown_profile",
			"message": "profile must be one of normal_user, heavy_user, business_user, suspicious_user",
		})
		return
	}
	span.SetAttributes(traces.Profile(profile))

	txs := make([]transaction.Transaction, 0, count)
	for i := 0; i < count; i++ {
		tx, err := h.gen.GenerateForProfile(ProfileName(profile))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_profile", "message": err.Error()})
			return
		}
		txs = append(txs, tx)
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs), "profile": profile})
}

// GenerateSession handles GET /sessions/:profile?length=
func (h *Handler) GenerateSession(c *gin.Context) {
	profile := c.Param("profile")
	length, ok := parseCount(c, "length", 0, MaxSessionLength)
	if !ok {
		return
	}

	_, span := traces.StartSpan(c.Request.Context(), "generator.session", traces.Profile(profile))
	defer span.End()

	txs, err := h.gen.Session(ProfileName(profile), length)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session", "message": err.Error()})
		return
	}

	sessionID := ""
	if len(txs) > 0 {
		sessionID = txs[0].SessionID
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":      profile,
		"session_id":   sessionID,
		"transactions": txs,
		"count":        len(txs),
	})
}

// MerchantStats handles GET /merchants/stats
func (h *Handler) MerchantStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.gen.MerchantStatistics())
}

// PeakHours handles GET /simulate/peak-hours
func (h *Handler) PeakHours(c *gin.Context) {
	_, span := traces.StartSpan(c.Request.Context(), "generator.peak_hours")
	defer span.End()

	c.JSON(http.StatusOK, h.gen.PeakHours())
}

// parseCount reads a non-negative integer query parameter, writing a 400 and
// returning false when it is malformed or above limit.
func parseCount(c *gin.Context, name string, def, limit int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > limit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_" + name,
			"message": name + " must be an integer between 0 and " + strconv.Itoa(limit),
		})
		return 0, false
	}
	return n, true
}
