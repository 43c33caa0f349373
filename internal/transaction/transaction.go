// Package transaction defines the card transaction record shared by the
// generator and the risk scorer.
package transaction

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Merchant types.
const (
	MerchantGrocery       = "grocery"
	MerchantGas           = "gas"
	MerchantRestaurant    = "restaurant"
	MerchantOnline        = "online"
	MerchantATM           = "atm"
	MerchantPharmacy      = "pharmacy"
	MerchantEntertainment = "entertainment"
	MerchantTravel        = "travel"
	MerchantUnknown       = "unknown"
)

// Time-of-day periods.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
	PeriodNight     = "night"
)

// Card types.
const (
	CardDebit   = "debit"
	CardCredit  = "credit"
	CardPrepaid = "prepaid"
)

// Provenance labels for UserProfile.
const (
	ProfileNormal     = "normal"
	ProfileFraudulent = "fraudulent"
)

// MinAmount is the smallest amount a generated transaction may carry.
const MinAmount = 0.01

// MerchantTypes lists every merchant type in canonical order.
var MerchantTypes = []string{
	MerchantGrocery, MerchantGas, MerchantRestaurant, MerchantOnline, MerchantATM,
	MerchantPharmacy, MerchantEntertainment, MerchantTravel, MerchantUnknown,
}

// Periods lists the time-of-day buckets in canonical order.
var Periods = []string{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight}

// CardTypes lists the card types in canonical order.
var CardTypes = []string{CardDebit, CardCredit, CardPrepaid}

// Transaction is a single card transaction. Values are immutable once built;
// copy before changing provenance fields.
type Transaction struct {
	Amount       float64 `json:"amount"`
	MerchantType string  `json:"merchant_type"`
	Location     string  `json:"location"`
	TimeOfDay    string  `json:"time_of_day"`
	CardType     string  `json:"card_type"`

	UserProfile  string `json:"user_profile,omitempty"`
	ProfileName  string `json:"profile_name,omitempty"`
	FraudPattern string `json:"fraud_pattern,omitempty"`

	Hour             *int       `json:"hour,omitempty"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	SessionID        string     `json:"session_id,omitempty"`
	PeakHour         bool       `json:"peak_hour,omitempty"`
	VolumeMultiplier float64    `json:"volume_multiplier,omitempty"`
}

// UnmarshalJSON accepts "merchant" as an alias of "merchant_type" so that
// clients using the short schema ({amount, merchant, location, time_of_day,
// card_type}) decode into the same record.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var aux struct {
		plain
		Merchant string `json:"merchant"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Transaction(aux.plain)
	if t.MerchantType == "" {
		t.MerchantType = aux.Merchant
	}
	return nil
}

// HourToPeriod maps an hour of day to its time-of-day bucket:
// [6,12) morning, [12,18) afternoon, [18,22) evening, anything else night.
func HourToPeriod(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	case hour >= 18 && hour < 22:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// RoundCents rounds an amount half away from zero to two decimal places.
func RoundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// ClampAmount enforces MinAmount and rounds to cents.
func ClampAmount(amount float64) float64 {
	if amount < MinAmount {
		amount = MinAmount
	}
	return RoundCents(amount)
}
