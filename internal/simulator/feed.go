// Package simulator drives the live analysis feed.
//
// One Feed runs per process. At a random interval it draws a transaction from
// its Source, scores it and broadcasts the result. Ticks with no connected
// clients are skipped, so the scorer's counters only move while someone is
// watching.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbd888/fraudwatch/internal/metrics"
	"github.com/mbd888/fraudwatch/internal/realtime"
	"github.com/mbd888/fraudwatch/internal/risk"
	"github.com/mbd888/fraudwatch/internal/traces"
)

// Default tick interval bounds.
const (
	DefaultMinInterval = 1 * time.Second
	DefaultMaxInterval = 3 * time.Second
)

// Broadcaster delivers events to feed clients.
type Broadcaster interface {
	Broadcast(event *realtime.Event)
	ClientCount() int
}

// Feed periodically scores transactions and broadcasts them.
type Feed struct {
	scorer  *risk.Scorer
	hub     Broadcaster
	source  Source
	logger  *slog.Logger
	minWait time.Duration
	maxWait time.Duration
	rng     *rand.Rand

	stop      chan struct{}
	stopOnce  sync.Once
	running   atomic.Bool
	published atomic.Int64
	skipped   atomic.Int64
}

// Option configures a Feed.
type Option func(*Feed)

// WithInterval sets the bounds of the random wait between ticks.
func WithInterval(lo, hi time.Duration) Option {
	return func(f *Feed) {
		f.minWait, f.maxWait = lo, hi
	}
}

// WithSource overrides the default sample source.
func WithSource(src Source) Option {
	return func(f *Feed) { f.source = src }
}

// WithSeed makes tick intervals and the default sample source reproducible.
func WithSeed(seed uint64) Option {
	return func(f *Feed) {
		f.rng = rand.New(rand.NewPCG(seed, seed>>3|1))
		if _, ok := f.source.(*SampleSource); ok {
			f.source = NewSampleSource(seed)
		}
	}
}

// NewFeed creates a feed scoring with scorer and broadcasting on hub.
func NewFeed(scorer *risk.Scorer, hub Broadcaster, logger *slog.Logger, opts ...Option) *Feed {
	f := &Feed{
		scorer:  scorer,
		hub:     hub,
		source:  NewSampleSource(rand.Uint64()),
		logger:  logger,
		minWait: DefaultMinInterval,
		maxWait: DefaultMaxInterval,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxWait < f.minWait {
		f.maxWait = f.minWait
	}
	return f
}

// Running reports whether the feed loop is active.
func (f *Feed) Running() bool {
	return f.running.Load()
}

// Stats reports how many ticks were published and skipped.
func (f *Feed) Stats() (published, skipped int64) {
	return f.published.Load(), f.skipped.Load()
}

// SourceName returns the name of the transaction source.
func (f *Feed) SourceName() string {
	return f.source.Name()
}

// Start runs the feed loop until ctx is done or Stop is called. Call in a goroutine.
func (f *Feed) Start(ctx context.Context) {
	f.running.Store(true)
	defer f.running.Store(false)

	f.logger.Info("live feed started",
		"source", f.source.Name(), "min_interval", f.minWait, "max_interval", f.maxWait)

	timer := time.NewTimer(f.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("live feed stopped")
			return
		case <-f.stop:
			f.logger.Info("live feed stopped")
			return
		case <-timer.C:
			f.safeTick(ctx)
			timer.Reset(f.nextWait())
		}
	}
}

// Stop signals the feed to stop. It is safe to call more than once.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *Feed) nextWait() time.Duration {
	spread := f.maxWait - f.minWait
	if spread <= 0 {
		return f.minWait
	}
	return f.minWait + time.Duration(f.rng.Int64N(int64(spread)+1))
}

func (f *Feed) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("panic in live feed", "panic", fmt.Sprint(r))
		}
	}()
	f.tick(ctx)
}

// tick scores and broadcasts one transaction. It reports whether anything was
// published.
func (f *Feed) tick(ctx context.Context) bool {
	if f.hub.ClientCount() == 0 {
		f.skipped.Add(1)
		metrics.FeedTicksSkippedTotal.Inc()
		return false
	}

	ctx, span := traces.StartSpan(ctx, "feed.tick", traces.FeedSource(f.source.Name()))
	defer span.End()

	tx := f.source.Next()
	p := f.scorer.Predict(ctx, tx)
	analysis := &risk.Analysis{Transaction: tx, Prediction: p, Recommendation: risk.Recommend(p)}

	f.hub.Broadcast(realtime.NewAnalysisEvent(realtime.SourceFeed, analysis))
	f.published.Add(1)

	f.logger.Debug("feed transaction scored",
		"id", p.ID,
		"amount", tx.Amount,
		"merchant_type", tx.MerchantType,
		"risk_score", p.RiskScore,
		"action", analysis.Recommendation.Action,
	)
	return true
}
