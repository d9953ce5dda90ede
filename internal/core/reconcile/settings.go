// Package reconcile contains the pure business rules for city reconciliation.
// This is part of the Functional Core - no I/O, only pure functions.
package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a user's chat probes are scheduled.
type Strategy string

const (
	// StrategySequential probes chats one at a time in directory order.
	StrategySequential Strategy = "sequential"
	// StrategyParallel probes all chats under the concurrency cap and keeps
	// the earliest match in directory order.
	StrategyParallel Strategy = "parallel"
)

// ParseStrategy converts a flag or config value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySequential, "seq", "":
		return StrategySequential, nil
	case StrategyParallel, "par":
		return StrategyParallel, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want %q or %q)", s, StrategySequential, StrategyParallel)
}

// Settings is the explicit run configuration handed to the scheduler.
type Settings struct {
	Strategy      Strategy
	Concurrency   int           // max in-flight probes (parallel only)
	CallDelay     time.Duration // min spacing between consecutive probes
	UserDelay     time.Duration // pause after each user
	BatchSize     int
	PageSize      int // 0 = fetch every candidate at once
	ProgressEvery int
	ProbeTimeout  time.Duration
	DryRun        bool
}

// DefaultSettings mirrors the values the reconciliation has been run with in
// production: one probe at a time, 50ms apart, commit every 50 users.
func DefaultSettings() Settings {
	return Settings{
		Strategy:      StrategySequential,
		Concurrency:   5,
		CallDelay:     50 * time.Millisecond,
		BatchSize:     50,
		PageSize:      1000,
		ProgressEvery: 50,
		ProbeTimeout:  10 * time.Second,
	}
}

// EffectiveConcurrency is the semaphore capacity actually used for a run.
// Sequential runs never have more than one probe in flight.
func (s Settings) EffectiveConcurrency() int {
	if s.Strategy == StrategySequential {
		return 1
	}
	return s.Concurrency
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string // Human-readable reason (populated when not allowed)
}

// Error returns the guard result as an error if not allowed, nil otherwise.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CheckSettings evaluates whether a run may start with the given settings.
func CheckSettings(s Settings) GuardResult {
	switch {
	case s.Strategy != StrategySequential && s.Strategy != StrategyParallel:
		return GuardResult{Reason: fmt.Sprintf("unknown strategy %q", s.Strategy)}
	case s.Strategy == StrategyParallel && s.Concurrency < 1:
		return GuardResult{Reason: fmt.Sprintf("concurrency must be at least 1 for parallel strategy, got %d", s.Concurrency)}
	case s.BatchSize < 1:
		return GuardResult{Reason: fmt.Sprintf("batch size must be at least 1, got %d", s.BatchSize)}
	case s.PageSize < 0:
		return GuardResult{Reason: fmt.Sprintf("page size must not be negative, got %d", s.PageSize)}
	case s.CallDelay < 0 || s.UserDelay < 0:
		return GuardResult{Reason: "delays must not be negative"}
	case s.ProbeTimeout < 0:
		return GuardResult{Reason: "probe timeout must not be negative"}
	}
	return GuardResult{Allowed: true}
}
