package generator

import (
	"time"

	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Session gap bounds, in minutes, inclusive.
const (
	minSessionGapMinutes = 5
	maxSessionGapMinutes = 120
)

// baseVolume is the per-hour transaction count at weight 1.0.
const baseVolume = 100

// Batch generates count independent transactions.
func (g *Generator) Batch(count int) ([]transaction.Transaction, error) {
	if count < 0 {
		return nil, ErrInvalidCount
	}
	txs := make([]transaction.Transaction, 0, count)
	for i := 0; i < count; i++ {
		txs = append(txs, g.Generate())
	}
	return txs, nil
}

// Session generates a chronologically ordered run of transactions for one
// user. A length of 0 draws the length from a Poisson distribution around the
// profile's daily average, with a minimum of one. Every transaction in the run
// carries the same session id.
func (g *Generator) Session(name ProfileName, length int) ([]transaction.Transaction, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, ErrUnknownProfile
	}
	if length < 0 {
		return nil, ErrInvalidCount
	}
	if length == 0 {
		length = max(1, poisson(g.rng, float64(p.AvgDailyTransactions)))
	}

	sessionID := g.newSessionID()
	at := g.now()
	txs := make([]transaction.Transaction, 0, length)
	for i := 0; i < length; i++ {
		gap := minSessionGapMinutes + g.rng.IntN(maxSessionGapMinutes-minSessionGapMinutes+1)
		at = at.Add(time.Duration(gap) * time.Minute)

		tx := g.generate(p)
		ts := at
		tx.Timestamp = &ts
		tx.SessionID = sessionID
		txs = append(txs, tx)
	}
	return txs, nil
}

// MerchantStatistics describes the static merchant tables.
type MerchantStatistics struct {
	MerchantTypes []string               `json:"merchant_types"`
	AmountRanges  map[string]AmountRange `json:"amount_ranges"`
	RiskLevels    map[string]RiskTier    `json:"risk_levels"`
}

// MerchantStatistics returns copies of the merchant tables.
func (g *Generator) MerchantStatistics() MerchantStatistics {
	ranges := make(map[string]AmountRange, len(merchantAmountRanges))
	for k, v := range merchantAmountRanges {
		ranges[k] = v
	}
	tiers := make(map[string]RiskTier, len(merchantRiskTiers))
	for k, v := range merchantRiskTiers {
		tiers[k] = v
	}
	return MerchantStatistics{
		MerchantTypes: append([]string(nil), transaction.MerchantTypes...),
		AmountRanges:  ranges,
		RiskLevels:    tiers,
	}
}

// PeakHourSimulation is the result of PeakHours.
type PeakHourSimulation struct {
	Hour           int                       `json:"hour"`
	ExpectedVolume int                       `json:"expected_volume"`
	Transactions   []transaction.Transaction `json:"transactions"`
	PeakFactor     float64                   `json:"peak_factor"`
}

// PeakHours generates the expected volume of transactions for the current
// hour of the generator's clock.
func (g *Generator) PeakHours() PeakHourSimulation {
	hour := g.now().Hour()
	factor := HourlyWeight(hour)
	volume := int(baseVolume * factor)

	txs := make([]transaction.Transaction, 0, volume)
	for i := 0; i < volume; i++ {
		tx := g.Generate()
		tx.PeakHour = true
		tx.VolumeMultiplier = factor
		txs = append(txs, tx)
	}

	return PeakHourSimulation{
		Hour:           hour,
		ExpectedVolume: volume,
		Transactions:   txs,
		PeakFactor:     factor,
	}
}
