// Package health provides a registry of named component health checks.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health of a single component.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker reports the health of a component.
type Checker func(ctx context.Context) Status

// DefaultCheckTimeout bounds each checker run by CheckAll.
const DefaultCheckTimeout = 2 * time.Second

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
	timeout  time.Duration
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{timeout: DefaultCheckTimeout}
}

// Register adds a named health checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll runs every checker and returns the aggregate health plus each
// component's status, in registration order. A checker that does not answer
// within the timeout counts as unhealthy.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		statuses[i] = r.run(ctx, nc)
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}

func (r *Registry) run(ctx context.Context, nc namedChecker) Status {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := make(chan Status, 1)
	go func() { result <- nc.check(ctx) }()

	select {
	case s := <-result:
		if s.Name == "" {
			s.Name = nc.name
		}
		return s
	case <-ctx.Done():
		return Status{Name: nc.name, Healthy: false, Detail: "check timed out"}
	}
}

// Running builds a checker for a background loop that should be active.
func Running(name string, running func() bool) Checker {
	return func(context.Context) Status {
		if running() {
			return Status{Name: name, Healthy: true, Detail: "running"}
		}
		return Status{Name: name, Healthy: false, Detail: "not running"}
	}
}
