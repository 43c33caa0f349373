// Package risk implements rule-based fraud scoring for card transactions.
//
// A transaction's risk score is the capped sum of five independent table
// lookups (amount tier, merchant, location, time of day, card type). A set of
// hand-coded anomaly predicates runs alongside it. Either a score above the
// fraud threshold or any anomaly marks the transaction as fraud.
package risk

import (
	"context"
	"time"

	"github.com/mbd888/fraudwatch/internal/transaction"
)

// DefaultFraudThreshold is the risk score above which a transaction is fraud.
const DefaultFraudThreshold = 0.6

// Prediction is the scorer's verdict on one transaction.
type Prediction struct {
	ID          string    `json:"id"`
	Prediction  int       `json:"prediction"`
	IsAnomaly   int       `json:"is_anomaly"`
	Confidence  float64   `json:"confidence"`
	RiskScore   float64   `json:"risk_score"`
	Anomalies   []string  `json:"anomalies,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// IsFraud reports whether the prediction flags fraud.
func (p Prediction) IsFraud() bool { return p.Prediction == 1 }

// Action is the recommended handling of a scored transaction.
type Action string

const (
	ActionBlock   Action = "BLOCK"
	ActionReview  Action = "REVIEW"
	ActionApprove Action = "APPROVE"
)

// AlertLevel grades the urgency of a scored transaction on the live feed.
type AlertLevel string

const (
	AlertHigh   AlertLevel = "high"
	AlertMedium AlertLevel = "medium"
	AlertLow    AlertLevel = "low"
)

// Recommendation pairs an action with its alert level and operator message.
type Recommendation struct {
	Action     Action     `json:"action"`
	AlertLevel AlertLevel `json:"alert_level"`
	Message    string     `json:"message"`
}

// Recommend derives the operator recommendation for a prediction.
func Recommend(p Prediction) Recommendation {
	switch {
	case p.Prediction == 1:
		return Recommendation{ActionBlock, AlertHigh, "BLOCK - High fraud risk detected"}
	case p.IsAnomaly == 1:
		return Recommendation{ActionReview, AlertMedium, "REVIEW - Transaction shows anomalous patterns"}
	default:
		return Recommendation{ActionApprove, AlertLow, "APPROVE - Transaction appears normal"}
	}
}

// Analysis is a scored transaction as kept in history and sent on the feed.
type Analysis struct {
	Transaction    transaction.Transaction `json:"transaction"`
	Prediction     Prediction              `json:"analysis"`
	Recommendation Recommendation          `json:"recommendation"`
}

// Store keeps recent analyses for inspection.
type Store interface {
	Record(ctx context.Context, analysis *Analysis) error
	ListRecent(ctx context.Context, limit int) ([]*Analysis, error)
}
