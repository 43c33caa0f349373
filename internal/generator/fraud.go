package generator

import (
	"math/rand/v2"

	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Archetype names a synthetic fraud pattern.
type Archetype string

const (
	ArchetypeHighAmountUnknownMerchant Archetype = "high_amount_unknown_merchant"
	ArchetypeMultipleSmallAmounts      Archetype = "multiple_small_amounts"
	ArchetypeForeignLocation           Archetype = "foreign_location"
	ArchetypeUnusualTime               Archetype = "unusual_time"
	ArchetypePrepaidCardPattern        Archetype = "prepaid_card_pattern"
)

// Archetypes lists the patterns injected by the generator.
var Archetypes = []Archetype{
	ArchetypeHighAmountUnknownMerchant,
	ArchetypeMultipleSmallAmounts,
	ArchetypeForeignLocation,
	ArchetypeUnusualTime,
	ArchetypePrepaidCardPattern,
}

// archetypeAmounts holds the literal amount range of each archetype.
var archetypeAmounts = map[Archetype]AmountRange{
	ArchetypeHighAmountUnknownMerchant: {1000, 15000},
	ArchetypeMultipleSmallAmounts:      {0.01, 50},
	ArchetypeForeignLocation:           {100, 3000},
	ArchetypeUnusualTime:               {200, 5000},
	ArchetypePrepaidCardPattern:        {50, 1000},
}

// fallbackAmount applies to archetypes outside Archetypes.
var fallbackAmount = AmountRange{500, 10000}

// ArchetypeAmountRange reports the amount bounds used for an archetype.
func ArchetypeAmountRange(a Archetype) AmountRange {
	if r, ok := archetypeAmounts[a]; ok {
		return r
	}
	return fallbackAmount
}

func randomArchetype(rng *rand.Rand) Archetype {
	return Archetypes[rng.IntN(len(Archetypes))]
}

// FraudTransaction builds a transaction following the given archetype. An
// unrecognized archetype yields the generic high-value prepaid pattern.
func (g *Generator) FraudTransaction(a Archetype) transaction.Transaction {
	return g.fraud(a)
}

func (g *Generator) fraud(a Archetype) transaction.Transaction {
	rng := g.rng
	amount := func() float64 {
		r := ArchetypeAmountRange(a)
		return transaction.RoundCents(uniform(rng, r.Min, r.Max))
	}

	tx := transaction.Transaction{
		UserProfile:  transaction.ProfileFraudulent,
		FraudPattern: string(a),
	}

	switch a {
	case ArchetypeHighAmountUnknownMerchant:
		tx.Amount = amount()
		tx.MerchantType = transaction.MerchantUnknown
		tx.Location = choice(rng, LocationUnknown, LocationForeign)
		tx.TimeOfDay = transaction.PeriodNight
		tx.CardType = choice(rng, transaction.CardCredit, transaction.CardPrepaid)

	case ArchetypeMultipleSmallAmounts:
		tx.Amount = amount()
		tx.MerchantType = choice(rng, transaction.MerchantOnline, transaction.MerchantUnknown)
		tx.Location = choice(rng, Locations[len(Locations)-2:]...)
		tx.TimeOfDay = choice(rng, transaction.PeriodNight, transaction.PeriodEvening)
		tx.CardType = transaction.CardPrepaid

	case ArchetypeForeignLocation:
		tx.Amount = amount()
		tx.MerchantType = choice(rng, transaction.MerchantOnline, transaction.MerchantTravel, transaction.MerchantUnknown)
		tx.Location = LocationForeign
		tx.TimeOfDay = choice(rng, transaction.PeriodNight, transaction.PeriodMorning)
		tx.CardType = choice(rng, transaction.CardCredit, transaction.CardPrepaid)

	case ArchetypeUnusualTime:
		tx.Amount = amount()
		tx.MerchantType = choice(rng, transaction.MerchantATM, transaction.MerchantOnline, transaction.MerchantUnknown)
		tx.Location = choice(rng, append([]string{LocationUnknown}, Locations[:10]...)...)
		tx.TimeOfDay = transaction.PeriodNight
		tx.CardType = choice(rng, transaction.CardTypes...)

	case ArchetypePrepaidCardPattern:
		tx.Amount = amount()
		tx.MerchantType = choice(rng, transaction.MerchantOnline, transaction.MerchantATM, transaction.MerchantUnknown)
		tx.Location = choice(rng, Locations...)
		tx.TimeOfDay = choice(rng, transaction.Periods...)
		tx.CardType = transaction.CardPrepaid

	default:
		tx.Amount = amount()
		tx.MerchantType = transaction.MerchantUnknown
		tx.Location = LocationUnknown
		tx.TimeOfDay = transaction.PeriodNight
		tx.CardType = transaction.CardPrepaid
	}

	return tx
}
