package generator

import "github.com/mbd888/fraudwatch/internal/transaction"

// ProfileName identifies a user profile.
type ProfileName string

const (
	ProfileNormalUser     ProfileName = "normal_user"
	ProfileHeavyUser      ProfileName = "heavy_user"
	ProfileBusinessUser   ProfileName = "business_user"
	ProfileSuspiciousUser ProfileName = "suspicious_user"
)

// Profile parameterizes normal transaction generation for a kind of user.
type Profile struct {
	Name                 ProfileName `json:"name"`
	AvgDailyTransactions int         `json:"avg_daily_transactions"`
	PreferredMerchants   []string    `json:"preferred_merchants"`
	AvgAmount            float64     `json:"avg_amount"`
	FraudProbability     float64     `json:"fraud_probability"`
}

// baselineAvgAmount is the profile average that leaves merchant ranges unscaled.
const baselineAvgAmount = 75.0

var profiles = map[ProfileName]*Profile{
	ProfileNormalUser: {
		Name:                 ProfileNormalUser,
		AvgDailyTransactions: 3,
		PreferredMerchants:   []string{transaction.MerchantGrocery, transaction.MerchantGas, transaction.MerchantRestaurant},
		AvgAmount:            75,
		FraudProbability:     0.001,
	},
	ProfileHeavyUser: {
		Name:                 ProfileHeavyUser,
		AvgDailyTransactions: 8,
		PreferredMerchants:   []string{transaction.MerchantOnline, transaction.MerchantRestaurant, transaction.MerchantEntertainment},
		AvgAmount:            120,
		FraudProbability:     0.005,
	},
	ProfileBusinessUser: {
		Name:                 ProfileBusinessUser,
		AvgDailyTransactions: 12,
		PreferredMerchants:   []string{transaction.MerchantTravel, transaction.MerchantOnline, transaction.MerchantRestaurant},
		AvgAmount:            300,
		FraudProbability:     0.008,
	},
	ProfileSuspiciousUser: {
		Name:                 ProfileSuspiciousUser,
		AvgDailyTransactions: 2,
		PreferredMerchants:   []string{transaction.MerchantUnknown, transaction.MerchantOnline, transaction.MerchantATM},
		AvgAmount:            500,
		FraudProbability:     0.15,
	},
}

// profileOrder and profileWeights describe the population mix: most users are normal.
var (
	profileOrder   = []ProfileName{ProfileNormalUser, ProfileHeavyUser, ProfileBusinessUser, ProfileSuspiciousUser}
	profileWeights = []float64{70, 20, 8, 2}
)

// LookupProfile returns a copy of the named profile.
func LookupProfile(name ProfileName) (Profile, bool) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, false
	}
	cp := *p
	cp.PreferredMerchants = append([]string(nil), p.PreferredMerchants...)
	return cp, true
}

// ProfileNames lists every profile in population order.
func ProfileNames() []ProfileName {
	return append([]ProfileName(nil), profileOrder...)
}

// AmountRange is an inclusive-exclusive range for uniform amount sampling.
type AmountRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var merchantAmountRanges = map[string]AmountRange{
	transaction.MerchantGrocery:       {5, 200},
	transaction.MerchantGas:           {20, 120},
	transaction.MerchantRestaurant:    {8, 150},
	transaction.MerchantOnline:        {10, 2000},
	transaction.MerchantATM:           {20, 500},
	transaction.MerchantPharmacy:      {5, 100},
	transaction.MerchantEntertainment: {15, 300},
	transaction.MerchantTravel:        {50, 5000},
	transaction.MerchantUnknown:       {1, 10000},
}

// hourlyWeights models transaction volume across the day, peaking at midday.
var hourlyWeights = [24]float64{
	0.5, 0.2, 0.1, 0.1, 0.1, 0.3,
	0.8, 1.2, 1.5, 1.8, 2.0, 2.2,
	2.5, 2.3, 2.0, 1.8, 1.9, 2.1,
	2.3, 2.0, 1.5, 1.2, 0.8, 0.6,
}

// HourlyWeight returns the volume weight for an hour of day, or 1.0 outside [0,23].
func HourlyWeight(hour int) float64 {
	if hour < 0 || hour >= len(hourlyWeights) {
		return 1.0
	}
	return hourlyWeights[hour]
}

const (
	LocationUnknown = "Unknown Location"
	LocationForeign = "Foreign Country"
)

// Locations are the 20 domestic cities followed by the two sentinel values.
var Locations = []string{
	"New York, NY", "Los Angeles, CA", "Chicago, IL", "Houston, TX", "Phoenix, AZ",
	"Philadelphia, PA", "San Antonio, TX", "San Diego, CA", "Dallas, TX", "San Jose, CA",
	"Austin, TX", "Jacksonville, FL", "Fort Worth, TX", "Columbus, OH", "Charlotte, NC",
	"San Francisco, CA", "Indianapolis, IN", "Seattle, WA", "Denver, CO", "Boston, MA",
	LocationUnknown, LocationForeign,
}

// locationWeights keep normal users overwhelmingly domestic.
var locationWeights = func() []float64 {
	w := make([]float64, 0, len(Locations))
	for i := 0; i < 20; i++ {
		w = append(w, 5)
	}
	return append(w, 1, 0.1)
}()

var cardWeights = []float64{50, 45, 5}

// RiskTier is a descriptive risk classification of a merchant type.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

var merchantRiskTiers = map[string]RiskTier{
	transaction.MerchantGrocery:       RiskLow,
	transaction.MerchantGas:           RiskLow,
	transaction.MerchantRestaurant:    RiskLow,
	transaction.MerchantPharmacy:      RiskLow,
	transaction.MerchantEntertainment: RiskMedium,
	transaction.MerchantOnline:        RiskMedium,
	transaction.MerchantTravel:        RiskMedium,
	transaction.MerchantATM:           RiskHigh,
	transaction.MerchantUnknown:       RiskHigh,
}
