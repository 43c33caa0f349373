package generator

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fraudwatch/internal/transaction"
)

func fixedClock(hour int) func() time.Time {
	at := time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func hasCents(amount float64) bool {
	return math.Abs(amount*100-math.Round(amount*100)) < 1e-6
}

func TestGenerate_AmountInvariant(t *testing.T) {
	g := New(WithSeed(1))
	for i := 0; i < 5000; i++ {
		tx := g.Generate()
		require.GreaterOrEqual(t, tx.Amount, transaction.MinAmount, "tx %d: %+v", i, tx)
		require.True(t, hasCents(tx.Amount), "tx %d amount %v has more than two decimals", i, tx.Amount)
	}
}

func TestGenerate_TimeOfDayMatchesHour(t *testing.T) {
	g := New(WithSeed(2))
	seen := 0
	for i := 0; i < 2000; i++ {
		tx := g.Generate()
		if tx.Hour == nil {
			continue // fraud archetypes pick a period directly
		}
		seen++
		require.GreaterOrEqual(t, *tx.Hour, 0)
		require.Less(t, *tx.Hour, 24)
		assert.Equal(t, transaction.HourToPeriod(*tx.Hour), tx.TimeOfDay)
	}
	assert.Greater(t, seen, 1000)
}

func TestGenerate_DeterministicForSeed(t *testing.T) {
	a, err := New(WithSeed(42), WithClock(fixedClock(9))).Batch(100)
	require.NoError(t, err)
	b, err := New(WithSeed(42), WithClock(fixedClock(9))).Batch(100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := New(WithSeed(43)).Batch(100)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerateForProfile_UnknownProfile(t *testing.T) {
	g := New(WithSeed(1))
	_, err := g.GenerateForProfile("vip_user")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestGenerateForProfile_UsesPreferredMerchants(t *testing.T) {
	g := New(WithSeed(3))
	for _, name := range ProfileNames() {
		p, ok := LookupProfile(name)
		require.True(t, ok)
		for i := 0; i < 300; i++ {
			tx, err := g.GenerateForProfile(name)
			require.NoError(t, err)
			if tx.UserProfile == transaction.ProfileFraudulent {
				continue
			}
			assert.Equal(t, transaction.ProfileNormal, tx.UserProfile)
			assert.Equal(t, string(name), tx.ProfileName)
			assert.Contains(t, p.PreferredMerchants, tx.MerchantType)
			assert.Contains(t, Locations, tx.Location)
			assert.Contains(t, transaction.CardTypes, tx.CardType)
		}
	}
}

func TestGenerateForProfile_SuspiciousUsersInjectFraud(t *testing.T) {
	g := New(WithSeed(4))
	fraud := 0
	for i := 0; i < 2000; i++ {
		tx, err := g.GenerateForProfile(ProfileSuspiciousUser)
		require.NoError(t, err)
		if tx.UserProfile == transaction.ProfileFraudulent {
			fraud++
			assert.NotEmpty(t, tx.FraudPattern)
		}
	}
	// p = 0.15, so roughly 300 of 2000.
	assert.Greater(t, fraud, 200)
	assert.Less(t, fraud, 400)
}

func TestGenerate_NormalAmountsScaleWithProfile(t *testing.T) {
	g := New(WithSeed(5))
	for i := 0; i < 1000; i++ {
		tx, err := g.GenerateForProfile(ProfileNormalUser)
		require.NoError(t, err)
		if tx.UserProfile == transaction.ProfileFraudulent {
			continue
		}
		r := merchantAmountRanges[tx.MerchantType]
		// normal_user has the baseline average, so only the jitter applies.
		assert.GreaterOrEqual(t, tx.Amount, transaction.RoundCents(r.Min*0.5))
		assert.LessOrEqual(t, tx.Amount, transaction.RoundCents(r.Max*1.5))
	}
}

func TestFraudTransaction_Archetypes(t *testing.T) {
	g := New(WithSeed(6))
	for _, a := range Archetypes {
		r := ArchetypeAmountRange(a)
		for i := 0; i < 500; i++ {
			tx := g.FraudTransaction(a)
			require.Equal(t, transaction.ProfileFraudulent, tx.UserProfile, "archetype %s", a)
			require.Equal(t, string(a), tx.FraudPattern)
			require.GreaterOrEqual(t, tx.Amount, r.Min, "archetype %s", a)
			require.LessOrEqual(t, tx.Amount, r.Max, "archetype %s", a)
			require.True(t, hasCents(tx.Amount))

			switch a {
			case ArchetypeHighAmountUnknownMerchant:
				assert.Equal(t, transaction.MerchantUnknown, tx.MerchantType)
				assert.Contains(t, []string{LocationUnknown, LocationForeign}, tx.Location)
				assert.Equal(t, transaction.PeriodNight, tx.TimeOfDay)
				assert.Contains(t, []string{transaction.CardCredit, transaction.CardPrepaid}, tx.CardType)
			case ArchetypeMultipleSmallAmounts:
				assert.Contains(t, []string{transaction.MerchantOnline, transaction.MerchantUnknown}, tx.MerchantType)
				assert.Contains(t, []string{LocationUnknown, LocationForeign}, tx.Location)
				assert.Contains(t, []string{transaction.PeriodNight, transaction.PeriodEvening}, tx.TimeOfDay)
				assert.Equal(t, transaction.CardPrepaid, tx.CardType)
			case ArchetypeForeignLocation:
				assert.Equal(t, LocationForeign, tx.Location)
				assert.Contains(t, []string{transaction.PeriodNight, transaction.PeriodMorning}, tx.TimeOfDay)
			case ArchetypeUnusualTime:
				assert.Equal(t, transaction.PeriodNight, tx.TimeOfDay)
				assert.NotEqual(t, LocationForeign, tx.Location)
				assert.NotContains(t, Locations[10:20], tx.Location)
			case ArchetypePrepaidCardPattern:
				assert.Equal(t, transaction.CardPrepaid, tx.CardType)
				assert.Contains(t, []string{transaction.MerchantOnline, transaction.MerchantATM, transaction.MerchantUnknown}, tx.MerchantType)
			}
		}
	}
}

func TestFraudTransaction_Fallback(t *testing.T) {
	g := New(WithSeed(7))
	for i := 0; i < 200; i++ {
		tx := g.FraudTransaction("card_testing")
		assert.Equal(t, transaction.ProfileFraudulent, tx.UserProfile)
		assert.Equal(t, transaction.MerchantUnknown, tx.MerchantType)
		assert.Equal(t, LocationUnknown, tx.Location)
		assert.Equal(t, transaction.PeriodNight, tx.TimeOfDay)
		assert.Equal(t, transaction.CardPrepaid, tx.CardType)
		assert.GreaterOrEqual(t, tx.Amount, 500.0)
		assert.LessOrEqual(t, tx.Amount, 10000.0)
	}
}

func TestBatch(t *testing.T) {
	g := New(WithSeed(8))

	txs, err := g.Batch(25)
	require.NoError(t, err)
	assert.Len(t, txs, 25)

	txs, err = g.Batch(0)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = g.Batch(-1)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestSession_FixedLength(t *testing.T) {
	clock := fixedClock(8)
	g := New(WithSeed(9), WithClock(clock))

	txs, err := g.Session(ProfileHeavyUser, 6)
	require.NoError(t, err)
	require.Len(t, txs, 6)

	prev := clock()
	sessionID := txs[0].SessionID
	assert.Len(t, sessionID, 8)
	for _, tx := range txs {
		require.NotNil(t, tx.Timestamp)
		gap := tx.Timestamp.Sub(prev)
		assert.GreaterOrEqual(t, gap, 5*time.Minute)
		assert.LessOrEqual(t, gap, 120*time.Minute)
		assert.Equal(t, sessionID, tx.SessionID)
		prev = *tx.Timestamp
	}
}

func TestSession_PoissonLength(t *testing.T) {
	g := New(WithSeed(10))
	total := 0
	for i := 0; i < 200; i++ {
		txs, err := g.Session(ProfileBusinessUser, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(txs), 1)
		total += len(txs)
	}
	mean := float64(total) / 200
	assert.InDelta(t, 12.0, mean, 1.5)
}

func TestSession_DistinctIDsPerSession(t *testing.T) {
	g := New(WithSeed(11))
	a, err := g.Session(ProfileNormalUser, 2)
	require.NoError(t, err)
	b, err := g.Session(ProfileNormalUser, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].SessionID, b[0].SessionID)
}

func TestSession_Errors(t *testing.T) {
	g := New(WithSeed(12))
	_, err := g.Session("nobody", 3)
	assert.ErrorIs(t, err, ErrUnknownProfile)

	_, err = g.Session(ProfileNormalUser, -2)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestMerchantStatistics(t *testing.T) {
	g := New()
	stats := g.MerchantStatistics()

	assert.Len(t, stats.MerchantTypes, 9)
	assert.Equal(t, AmountRange{Min: 50, Max: 5000}, stats.AmountRanges[transaction.MerchantTravel])
	assert.Equal(t, RiskLow, stats.RiskLevels[transaction.MerchantGrocery])
	assert.Equal(t, RiskMedium, stats.RiskLevels[transaction.MerchantOnline])
	assert.Equal(t, RiskHigh, stats.RiskLevels[transaction.MerchantATM])

	// Returned tables are copies.
	stats.RiskLevels[transaction.MerchantATM] = RiskLow
	stats.MerchantTypes[0] = "mutated"
	again := g.MerchantStatistics()
	assert.Equal(t, RiskHigh, again.RiskLevels[transaction.MerchantATM])
	assert.Equal(t, transaction.MerchantGrocery, again.MerchantTypes[0])
}

func TestPeakHours(t *testing.T) {
	g := New(WithSeed(13), WithClock(fixedClock(12)))
	sim := g.PeakHours()

	assert.Equal(t, 12, sim.Hour)
	assert.Equal(t, 2.5, sim.PeakFactor)
	assert.Equal(t, 250, sim.ExpectedVolume)
	require.Len(t, sim.Transactions, 250)
	for _, tx := range sim.Transactions {
		assert.True(t, tx.PeakHour)
		assert.Equal(t, 2.5, tx.VolumeMultiplier)
	}
}

func TestPeakHours_QuietHour(t *testing.T) {
	g := New(WithSeed(14), WithClock(fixedClock(3)))
	sim := g.PeakHours()
	assert.Equal(t, 0.1, sim.PeakFactor)
	assert.Equal(t, 10, sim.ExpectedVolume)
	assert.Len(t, sim.Transactions, 10)
}

func TestHourlyWeight_OutOfRange(t *testing.T) {
	assert.Equal(t, 1.0, HourlyWeight(-1))
	assert.Equal(t, 1.0, HourlyWeight(24))
	assert.Equal(t, 0.6, HourlyWeight(23))
}

func TestWeightedIndex(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, weightedIndex(rng, []float64{0, 1, 0}))
	}

	counts := make([]int, 2)
	for i := 0; i < 10000; i++ {
		counts[weightedIndex(rng, []float64{1, 3})]++
	}
	assert.InDelta(t, 0.75, float64(counts[1])/10000, 0.03)
}

func TestPoisson(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	assert.Equal(t, 0, poisson(rng, 0))

	total := 0
	for i := 0; i < 5000; i++ {
		total += poisson(rng, 3)
	}
	assert.InDelta(t, 3.0, float64(total)/5000, 0.15)
}

func TestGenerator_ConcurrentUse(t *testing.T) {
	g := New(WithSeed(15))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tx := g.Generate()
				if tx.Amount < transaction.MinAmount {
					t.Errorf("amount below minimum: %v", tx.Amount)
				}
			}
		}()
	}
	wg.Wait()
}
