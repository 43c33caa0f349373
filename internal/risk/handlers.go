package risk

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/fraudwatch/internal/pagination"
	"github.com/mbd888/fraudwatch/internal/transaction"
	"github.com/mbd888/fraudwatch/internal/validation"
)

// DetectionMethod describes the scoring approach in reports.
const DetectionMethod = "Rule-based Analysis"

// Publisher receives analyses produced by the API, e.g. the live feed.
type Publisher interface {
	PublishAnalysis(analysis *Analysis)
}

// Handler provides HTTP endpoints for scoring and reporting
type Handler struct {
	scorer    *Scorer
	store     Store
	publisher Publisher
}

// NewHandler creates a new risk handler. store and publisher may be nil.
func NewHandler(scorer *Scorer, store Store, publisher Publisher) *Handler {
	return &Handler{scorer: scorer, store: store, publisher: publisher}
}

// RegisterRoutes sets up the top-level scoring routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/analyze", h.Analyze)
	r.GET("/stats", h.Stats)
}

// RegisterHistoryRoutes sets up analysis history routes
func (h *Handler) RegisterHistoryRoutes(r *gin.RouterGroup) {
	r.GET("/analyses/recent", h.ListRecent)
}

// Analyze handles POST /analyze. Missing fields score as zero values.
func (h *Handler) Analyze(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request_too_large", "message": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "body must be a transaction JSON object"})
		return
	}

	if errs := validation.Validate(
		validation.Finite("amount", tx.Amount),
		validation.MaxLength("merchant_type", tx.MerchantType, validation.MaxFieldLength),
		validation.MaxLength("location", tx.Location, validation.MaxFieldLength),
		validation.MaxLength("time_of_day", tx.TimeOfDay, validation.MaxFieldLength),
		validation.MaxLength("card_type", tx.CardType, validation.MaxFieldLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "message": errs.Error(), "details": errs})
		return
	}
	tx.MerchantType = validation.SanitizeString(tx.MerchantType, validation.MaxFieldLength)
	tx.Location = validation.SanitizeString(tx.Location, validation.MaxFieldLength)
	tx.TimeOfDay = validation.SanitizeString(tx.TimeOfDay, validation.MaxFieldLength)
	tx.CardType = validation.SanitizeString(tx.CardType, validation.MaxFieldLength)

	p := h.scorer.Predict(c.Request.Context(), tx)
	rec := Recommend(p)

	if h.publisher != nil {
		h.publisher.PublishAnalysis(&Analysis{Transaction: tx, Prediction: p, Recommendation: rec})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"transaction":    tx,
		"analysis":       p,
		"recommendation": rec.Message,
		"alert_level":    rec.AlertLevel,
		"timestamp":      p.EvaluatedAt.Format(time.RFC3339Nano),
	})
}

// Stats handles GET /stats
func (h *Handler) Stats(c *gin.Context) {
	s := h.scorer.Stats()
	c.JSON(http.StatusOK, gin.H{
		"model_metrics": s.Simulated,
		"transaction_stats": gin.H{
			"total_transactions":  s.TotalTransactions,
			"fraud_detected":      s.FraudDetected,
			"normal_transactions": s.NormalTransactions,
			"fraud_rate":          s.FraudRate,
			"normal_rate":         s.NormalRate,
		},
		"fraud_threshold":  h.scorer.Threshold(),
		"status":           "active",
		"detection_method": DetectionMethod,
	})
}

// ListRecent handles GET /analyses/recent?limit=&cursor=
// Results are newest first; pass next_cursor back to fetch older entries.
func (h *Handler) ListRecent(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history_disabled", "message": "analysis history is not enabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > DefaultHistorySize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and " + strconv.Itoa(DefaultHistorySize),
			})
			return
		}
		limit = n
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": err.Error()})
		return
	}

	all, err := h.store.ListRecent(c.Request.Context(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list analyses"})
		return
	}

	page := pagination.Paginate(all, cursor, limit, func(a *Analysis) (time.Time, string) {
		return a.Prediction.EvaluatedAt, a.Prediction.ID
	})
	c.JSON(http.StatusOK, gin.H{
		"analyses":    page.Items,
		"count":       len(page.Items),
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}
