package simulator

import (
	"math/rand/v2"
	"sync"

	"github.com/mbd888/fraudwatch/internal/generator"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

// Source supplies transactions for the live feed.
type Source interface {
	Name() string
	Next() transaction.Transaction
}

// Source names accepted by configuration.
const (
	SourceSample    = "sample"
	SourceGenerator = "generator"
)

var (
	sampleMerchants = []string{
		transaction.MerchantGrocery,
		transaction.MerchantGas,
		transaction.MerchantRestaurant,
		transaction.MerchantOnline,
		transaction.MerchantATM,
	}
	sampleRegions = []string{"NY", "CA", "TX", "FL", "IL"}
)

// SampleSource draws uniform demo transactions over the scored feature values:
// amount in [5, 3000], one of five merchants, one of five region codes, and a
// uniform period and card type.
type SampleSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampleSource creates a sample source seeded with seed.
func NewSampleSource(seed uint64) *SampleSource {
	return &SampleSource{rng: rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))}
}

func (s *SampleSource) Name() string { return SourceSample }

func (s *SampleSource) Next() transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	pick := func(values []string) string { return values[s.rng.IntN(len(values))] }
	return transaction.Transaction{
		Amount:       transaction.RoundCents(5 + 2995*s.rng.Float64()),
		MerchantType: pick(sampleMerchants),
		Location:     pick(sampleRegions),
		TimeOfDay:    pick(transaction.Periods),
		CardType:     pick(transaction.CardTypes),
	}
}

// GeneratorSource streams profile-driven generator output.
type GeneratorSource struct {
	gen *generator.Generator
}

// NewGeneratorSource wraps a generator as a feed source.
func NewGeneratorSource(gen *generator.Generator) *GeneratorSource {
	return &GeneratorSource{gen: gen}
}

func (s *GeneratorSource) Name() string { return SourceGenerator }

func (s *GeneratorSource) Next() transaction.Transaction { return s.gen.Generate() }
