// Package generator produces synthetic card transactions for exercising the
// risk scorer.
//
// Transactions are drawn from per-profile merchant preferences, merchant
// amount ranges, a diurnal hour curve and weighted location and card mixes.
// A small, profile-dependent share is replaced with one of five fraud
// archetypes. All sampling goes through one injectable random source, so a
// fixed seed reproduces the same stream.
package generator

import (
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbd888/fraudwatch/internal/metrics"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

var (
	ErrUnknownProfile = errors.New("generator: unknown user profile")
	ErrInvalidCount   = errors.New("generator: count must not be negative")
)

// Generator produces synthetic transactions. It holds no mutable state besides
// its random source, which is guarded, so one Generator may be shared.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(&lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)})
	}
}

// WithSource uses the given random source. The source is wrapped in a lock.
func WithSource(src rand.Source) Option {
	return func(g *Generator) {
		g.rng = rand.New(&lockedSource{src: src})
	}
}

// WithClock overrides the wall clock used by sessions and peak-hour simulation.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator. Without WithSeed or WithSource it is seeded randomly.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(&lockedSource{src: rand.NewPCG(rand.Uint64(), rand.Uint64())}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one transaction for a profile picked by population weight.
func (g *Generator) Generate() transaction.Transaction {
	p := profileOrder[weightedIndex(g.rng, profileWeights)]
	return g.generate(profiles[p])
}

// GenerateForProfile produces one transaction for the named profile.
func (g *Generator) GenerateForProfile(name ProfileName) (transaction.Transaction, error) {
	p, ok := profiles[name]
	if !ok {
		return transaction.Transaction{}, ErrUnknownProfile
	}
	return g.generate(p), nil
}

func (g *Generator) generate(p *Profile) transaction.Transaction {
	if g.rng.Float64() < p.FraudProbability {
		tx := g.fraud(randomArchetype(g.rng))
		metrics.TransactionsGeneratedTotal.WithLabelValues("fraud").Inc()
		return tx
	}
	tx := g.normal(p)
	metrics.TransactionsGeneratedTotal.WithLabelValues(string(p.Name)).Inc()
	return tx
}

// normal builds a legitimate-looking transaction shaped by the profile.
func (g *Generator) normal(p *Profile) transaction.Transaction {
	merchant := p.PreferredMerchants[g.rng.IntN(len(p.PreferredMerchants))]
	r := merchantAmountRanges[merchant]

	amount := uniform(g.rng, r.Min, r.Max) * uniform(g.rng, 0.5, 1.5) * (p.AvgAmount / baselineAvgAmount)

	hour := weightedIndex(g.rng, hourlyWeights[:])

	return transaction.Transaction{
		Amount:       transaction.ClampAmount(amount),
		MerchantType: merchant,
		Location:     Locations[weightedIndex(g.rng, locationWeights)],
		TimeOfDay:    transaction.HourToPeriod(hour),
		CardType:     transaction.CardTypes[weightedIndex(g.rng, cardWeights)],
		UserProfile:  transaction.ProfileNormal,
		ProfileName:  string(p.Name),
		Hour:         &hour,
	}
}

// newSessionID returns an 8-character token cut from a UUID drawn from the
// generator's own source, so seeded generators produce stable ids.
func (g *Generator) newSessionID() string {
	id, err := uuid.NewRandomFromReader(rngReader{g.rng})
	if err != nil {
		id = uuid.New()
	}
	return id.String()[:8]
}

// lockedSource serializes access to a rand.Source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// rngReader adapts a *rand.Rand to io.Reader.
type rngReader struct {
	r *rand.Rand
}

var _ io.Reader = rngReader{}

func (rr rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(rr.r.Uint32())
	}
	return len(p), nil
}
