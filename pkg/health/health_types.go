package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the outcome of a preflight check
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents the result of one preflight check
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc performs a single check
type CheckFunc func(ctx context.Context) Check

// Checker runs the registered preflight checks of a planning run
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// Report is the aggregated result of a Run
type Report struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
}
