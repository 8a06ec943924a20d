// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     health
// Description: Environment checks for the doctor command
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package health

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sort"
	"sync"
	"time"
)

// Status represents the outcome of a check
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult represents the result of a single check
type CheckResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Checker is one named check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

func (c *namedCheck) Name() string { return c.name }

func (c *namedCheck) Check(ctx context.Context) CheckResult {
	return c.fn(ctx)
}

// Registry runs a set of checkers
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker)
}

// RegisterFunc adds a check function
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Check runs all checks concurrently. Results keep registration order.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := append([]Checker(nil), r.checkers...)
	r.mu.RUnlock()

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			start := time.Now()
			res := c.Check(ctx)
			res.Duration = time.Since(start)
			if res.Name == "" {
				res.Name = c.Name()
			}
			if res.Status == "" {
				res.Status = StatusUnknown
			}
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	report := &Report{Status: StatusHealthy, Checks: results, Timestamp: time.Now()}
	for _, res := range results {
		switch res.Status {
		case StatusUnhealthy:
			report.Status = StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// Report is the combined outcome of all checks
type Report struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// Failed returns the checks that are not healthy, sorted by name
func (r *Report) Failed() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Status != StatusHealthy {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Report) String() string {
	return fmt.Sprintf("Status: %s, Checks: %d, Failed: %d", r.Status, len(r.Checks), len(r.Failed()))
}

// BinaryCheck reports whether an executable is on PATH. A missing optional
// binary only degrades.
func BinaryCheck(name, binary string, required bool) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		path, err := exec.LookPath(binary)
		if err != nil {
			status := StatusDegraded
			if required {
				status = StatusUnhealthy
			}
			return CheckResult{Name: name, Status: status, Message: binary + " nicht gefunden"}
		}
		return CheckResult{Name: name, Status: StatusHealthy, Message: path}
	})
}

// HTTPCheck requests url and treats any response below 500 as reachable
func HTTPCheck(name, url string, timeout time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return CheckResult{Name: name, Status: StatusUnhealthy, Message: err.Error()}
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return CheckResult{Name: name, Status: StatusUnhealthy, Message: err.Error()}
		}
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			return CheckResult{Name: name, Status: StatusDegraded, Message: resp.Status}
		}
		return CheckResult{Name: name, Status: StatusHealthy, Message: resp.Status}
	})
}
