// Package health provides liveness and readiness checks for focusdeck.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// CheckFunc is a function that checks a dependency's health.
type CheckFunc func(ctx context.Context) Status

const checkTimeout = 5 * time.Second

// Checker manages named health checks. For focusdeck that is mostly the
// embedded store, but checks stay named so more can register.
type Checker struct {
	mu     sync.Mutex
	checks map[string]CheckFunc
	last   map[string]Status
	logger zerolog.Logger
}

// NewChecker creates a new health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		last:   make(map[string]Status),
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes every registered check and returns the results. The check
// count here is small so checks run sequentially, each with its own timeout.
func (c *Checker) RunAll(ctx context.Context) map[string]Status {
	c.mu.Lock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.Unlock()

	results := make(map[string]Status, len(checks))
	for name, fn := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		status := fn(checkCtx)
		cancel()
		results[name] = status
		if status != StatusOK {
			c.logger.Warn().Str("check", name).Str("status", string(status)).Msg("health check not ok")
		}
	}

	c.mu.Lock()
	c.last = results
	c.mu.Unlock()

	return results
}

// Last returns the results of the most recent RunAll without re-running.
func (c *Checker) Last() map[string]Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Status, len(c.last))
	for name, status := range c.last {
		out[name] = status
	}
	return out
}

// IsReady reports whether no check is down.
func (c *Checker) IsReady(ctx context.Context) bool {
	for _, status := range c.RunAll(ctx) {
		if status == StatusDown {
			return false
		}
	}
	return true
}
