// Package health runs preflight checks before a planning run starts
// external partitioners or writes output.
package health

import (
	"context"
	"time"

	"golang.org/x/exp/slices"
)

// NewChecker creates an empty checker
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc)}
}

// Register adds or replaces a named check
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names returns the registered check names in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run performs every registered check. The worst status wins.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(c.checks)),
	}

	for name, checkFunc := range c.checks {
		start := time.Now()
		var check Check
		if err := ctx.Err(); err != nil {
			check = Check{Status: StatusUnhealthy, Message: err.Error()}
		} else {
			check = checkFunc(ctx)
		}
		if check.Name == "" {
			check.Name = name
		}
		check.Duration = time.Since(start)
		check.LastChecked = start

		report.Checks[name] = check

		if check.Status == StatusUnhealthy {
			report.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && report.Status != StatusUnhealthy {
			report.Status = StatusDegraded
		}
	}

	return report
}

// Healthy reports whether no check failed. Degraded checks pass.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}
