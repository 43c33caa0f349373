package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/fraudwatch/internal/risk"
	"github.com/mbd888/fraudwatch/internal/traces"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Batch simulation limits.
const (
	defaultSimulationSize = 20
	maxSimulationSize     = 500
)

// ScoredTransaction pairs a generated transaction with its analysis.
type ScoredTransaction struct {
	Transaction    transaction.Transaction `json:"transaction"`
	Analysis       risk.Prediction         `json:"analysis"`
	Recommendation risk.Recommendation     `json:"recommendation"`
}

// Agreement compares decisions with the generator's provenance labels. These
// are counts over synthetic data, not a measure of real-world accuracy.
type Agreement struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`
}

// SimulationSummary aggregates a scored batch.
type SimulationSummary struct {
	Count         int                 `json:"count"`
	FraudDetected int                 `json:"fraud_detected"`
	FraudRate     float64             `json:"fraud_rate"`
	MeanRiskScore float64             `json:"mean_risk_score"`
	Actions       map[risk.Action]int `json:"actions"`
	Agreement     Agreement           `json:"agreement"`
}

// simulateBatch generates count transactions and scores each one.
func (s *Server) simulateBatch(c *gin.Context, count int) ([]ScoredTransaction, SimulationSummary, error) {
	ctx, span := traces.StartSpan(c.Request.Context(), "simulate.batch", traces.Count(count))
	defer span.End()

	txs, err := s.generator.Batch(count)
	if err != nil {
		return nil, SimulationSummary{}, err
	}

	results := make([]ScoredTransaction, 0, len(txs))
	summary := SimulationSummary{Count: len(txs), Actions: make(map[risk.Action]int)}
	var scoreSum float64

	for _, tx := range txs {
		p := s.scorer.Predict(ctx, tx)
		rec := risk.Recommend(p)
		results = append(results, ScoredTransaction{Transaction: tx, Analysis: p, Recommendation: rec})

		summary.Actions[rec.Action]++
		scoreSum += p.RiskScore

		labelled := tx.UserProfile == transaction.ProfileFraudulent
		switch {
		case p.IsFraud() && labelled:
			summary.Agreement.TruePositives++
		case p.IsFraud():
			summary.Agreement.FalsePositives++
		case labelled:
			summary.Agreement.FalseNegatives++
		default:
			summary.Agreement.TrueNegatives++
		}
		if p.IsFraud() {
			summary.FraudDetected++
		}
	}

	if n := len(results); n > 0 {
		summary.FraudRate = math.Round(float64(summary.FraudDetected)/float64(n)*10000) / 100
		summary.MeanRiskScore = math.Round(scoreSum/float64(n)*1000) / 1000
	}
	return results, summary, nil
}

// simulateBatchHandler handles POST /v1/simulate/batch?count=
func (s *Server) simulateBatchHandler(c *gin.Context) {
	count := defaultSimulationSize
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSimulationSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_count",
				"message": "count must be an integer between 1 and " + strconv.Itoa(maxSimulationSize),
			})
			return
		}
		count = n
	}

	results, summary, err := s.simulateBatch(c, count)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_count", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"summary": summary,
	})
}
