// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/fraudwatch/internal/config"
	"github.com/mbd888/fraudwatch/internal/generator"
	"github.com/mbd888/fraudwatch/internal/health"
	"github.com/mbd888/fraudwatch/internal/idgen"
	"github.com/mbd888/fraudwatch/internal/logging"
	"github.com/mbd888/fraudwatch/internal/metrics"
	"github.com/mbd888/fraudwatch/internal/ratelimit"
	"github.com/mbd888/fraudwatch/internal/realtime"
	"github.com/mbd888/fraudwatch/internal/risk"
	"github.com/mbd888/fraudwatch/internal/security"
	"github.com/mbd888/fraudwatch/internal/simulator"
	"github.com/mbd888/fraudwatch/internal/validation"
)

// Version is reported by /health and the API banner.
const Version = "1.0.0"

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	generator   *generator.Generator
	scorer      *risk.Scorer
	history     *risk.MemoryStore
	realtimeHub *realtime.Hub
	feed        *simulator.Feed
	health      *health.Registry
	rateLimiter *ratelimit.Limiter
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
	now         func() time.Time

	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run
	shutdownWait time.Duration      // drain delay before closing the listener

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock overrides the wall clock used for scoring timestamps and reports
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithShutdownDrain sets how long Shutdown waits for load balancers to stop
// sending traffic before closing the listener
func WithShutdownDrain(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownWait = d
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}

	s := &Server{
		cfg:          cfg,
		logger:       logging.New(cfg.LogLevel, cfg.LogFormat),
		now:          time.Now,
		shutdownWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	genOpts := []generator.Option{generator.WithClock(s.now)}
	scorerOpts := []risk.Option{
		risk.WithFraudThreshold(cfg.FraudThreshold),
		risk.WithClock(s.now),
	}
	feedOpts := []simulator.Option{simulator.WithInterval(cfg.FeedMinInterval, cfg.FeedMaxInterval)}
	if cfg.RandomSeed != 0 {
		genOpts = append(genOpts, generator.WithSeed(cfg.RandomSeed))
		scorerOpts = append(scorerOpts, risk.WithSeed(cfg.RandomSeed+1))
		feedOpts = append(feedOpts, simulator.WithSeed(cfg.RandomSeed+2))
		s.logger.Info("deterministic mode", "seed", cfg.RandomSeed)
	}

	s.history = risk.NewMemoryStore(cfg.RecentAnalyses)
	scorerOpts = append(scorerOpts, risk.WithStore(s.history))

	s.generator = generator.New(genOpts...)
	s.scorer = risk.NewScorer(scorerOpts...)
	s.realtimeHub = realtime.NewHub(s.logger, realtime.WithAllowAllOrigins())

	if cfg.FeedSource == simulator.SourceGenerator {
		feedOpts = append(feedOpts, simulator.WithSource(simulator.NewGeneratorSource(s.generator)))
	}
	if cfg.FeedEnabled {
		s.feed = simulator.NewFeed(s.scorer, s.realtimeHub, s.logger, feedOpts...)
	}

	s.health = health.NewRegistry()
	s.registerHealthChecks()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	s.logger.Info("server initialized",
		"fraud_threshold", s.scorer.Threshold(),
		"feed_enabled", cfg.FeedEnabled,
		"feed_source", cfg.FeedSource,
	)
	return s, nil
}

func (s *Server) registerHealthChecks() {
	s.health.Register("scorer", func(context.Context) health.Status {
		return health.Status{Healthy: true, Detail: risk.DetectionMethod}
	})
	s.health.Register("realtime", func(context.Context) health.Status {
		return health.Status{Healthy: true, Detail: fmt.Sprintf("%d clients connected", s.realtimeHub.ClientCount())}
	})
	if s.feed != nil {
		s.health.Register("feed", func(ctx context.Context) health.Status {
			if !s.ready.Load() {
				return health.Status{Healthy: true, Detail: "starting"}
			}
			return health.Running("feed", s.feed.Running)(ctx)
		})
	}
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())

	// Dashboards may be served from anywhere
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	s.rateLimiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: s.cfg.RateLimitRPM,
		BurstSize:         s.cfg.RateLimitBurst,
		CleanupInterval:   time.Minute,
		ExemptPaths:       []string{"/health", "/health/live", "/health/ready", "/metrics", "/ws"},
	})
	s.router.Use(s.rateLimiter.Middleware())

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Honour an upstream request ID (load balancer, client)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = idgen.Hex(16)
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}

		logger := logging.L(c.Request.Context())
		switch {
		case status >= 500:
			logger.Error("request completed", append(attrs, "client_ip", c.ClientIP())...)
		case status >= 400:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server, the realtime hub and the live feed, and blocks
// until a signal, ctx cancellation or a listener error.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "version", Version)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)
	go metrics.StartRuntimeCollector(runCtx, 15*time.Second)

	if s.feed != nil {
		go s.feed.Start(runCtx)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		cancel()
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.feed != nil {
		s.feed.Stop()
	}
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	time.Sleep(s.shutdownWait)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.rateLimiter.Stop()

	counters := s.scorer.Accumulator().Snapshot()
	s.logger.Info("server stopped",
		"transactions_scored", counters.Total,
		"fraud_detected", counters.Fraud,
	)
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Scorer returns the shared risk scorer
func (s *Server) Scorer() *risk.Scorer {
	return s.scorer
}
