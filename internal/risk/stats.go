package risk

import "sync"

// SimulatedMetricsNote accompanies the display-only accuracy figures.
const SimulatedMetricsNote = "simulated display values sampled at report time; not measured against labelled outcomes"

// Counters is a consistent snapshot of the scorer's running totals.
type Counters struct {
	Total  int64 `json:"total_transactions"`
	Fraud  int64 `json:"fraud_detected"`
	Normal int64 `json:"normal_transactions"`
}

// Accumulator holds the scorer's monotonic counters. Every Record bumps the
// total and exactly one of fraud or normal under one lock, so snapshots always
// satisfy Total == Fraud + Normal.
type Accumulator struct {
	mu sync.Mutex
	c  Counters
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record counts one scored transaction.
func (a *Accumulator) Record(fraud bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.c.Total++
	if fraud {
		a.c.Fraud++
	} else {
		a.c.Normal++
	}
}

// Snapshot returns the current totals.
func (a *Accumulator) Snapshot() Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.c
}

// SimulatedMetrics are synthetic accuracy figures for dashboards. They are
// drawn from fixed ranges on every report and carry no information about
// detection quality.
type SimulatedMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Synthetic bool    `json:"synthetic"`
	Note      string  `json:"note"`
}

// Stats is the scorer's report.
type Stats struct {
	TotalTransactions  int64            `json:"total_transactions"`
	FraudDetected      int64            `json:"fraud_detected"`
	NormalTransactions int64            `json:"normal_transactions"`
	FraudRate          float64          `json:"fraud_rate"`
	NormalRate         float64          `json:"normal_rate"`
	Simulated          SimulatedMetrics `json:"simulated_metrics"`
}
