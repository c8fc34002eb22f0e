// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package deploy implements the progressive deployment state machine for
// Pose Coach releases.
//
// A deployment run executes one of four strategies (immediate, canary,
// blue/green, gradual) as a sequence of stages. Each stage performs an
// action against the Play Store rollout and/or monitors health metrics,
// and appends exactly one StageResult to the run. A failing stage stops
// the sequence; canary and gradual failures append a rollback stage, a
// failed blue/green traffic switch appends a revert-to-blue stage.
//
// The package is built around three injectable collaborators so every
// strategy is testable without real waiting or network calls:
//
//   - RolloutClient drives the app-store rollout (see collaborators.go)
//   - MetricSource answers health-metric queries (see collaborators.go)
//   - Clock provides time and cancellable sleeps (see clock.go)
package deploy

import (
	"fmt"
	"time"
)

// =============================================================================
// STRATEGY
// =============================================================================

// Strategy selects which stage sequence a deployment run executes.
// It is chosen once per run and never changes mid-run.
type Strategy string

const (
	// StrategyImmediate rolls out to 100% of users in a single stage.
	StrategyImmediate Strategy = "immediate"

	// StrategyCanary deploys to a small percentage, monitors it, and only
	// then proceeds to a full rollout. A monitoring failure rolls back.
	StrategyCanary Strategy = "canary"

	// StrategyBlueGreen deploys to the internal (green) track, health
	// checks it, and switches production traffic only if checks pass.
	StrategyBlueGreen Strategy = "blue_green"

	// StrategyGradual ramps through configured percentage stages with a
	// monitoring window between each step.
	StrategyGradual Strategy = "gradual"
)

// ErrUnsupportedStrategy is returned by ParseStrategy and Execute for a
// strategy value outside the four supported ones. It is the only error
// class that escapes Execute before any stage runs.
var ErrUnsupportedStrategy = fmt.Errorf("unsupported deployment strategy")

// ParseStrategy converts a CLI/config string into a Strategy.
//
// # Inputs
//
//   - s: Raw strategy name ("immediate", "canary", "blue_green", "gradual").
//
// # Outputs
//
//   - Strategy: The parsed strategy.
//   - error: ErrUnsupportedStrategy (wrapped with the offending value) for
//     anything else, including the empty string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyImmediate, StrategyCanary, StrategyBlueGreen, StrategyGradual:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedStrategy, s)
	}
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle state of a single deployment stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// =============================================================================
// HEALTH METRICS
// =============================================================================

// Comparison is the direction a health metric is compared against its
// threshold.
type Comparison string

const (
	// ComparisonLessThan marks a metric healthy when its value is strictly
	// below the threshold (crash rate, latency, resource usage).
	ComparisonLessThan Comparison = "less_than"

	// ComparisonGreaterThan marks a metric healthy when its value is at or
	// above the threshold (user satisfaction).
	ComparisonGreaterThan Comparison = "greater_than"
)

// HealthMetric is one named observation produced by a health-check
// evaluation. It is created fresh on every poll and never mutated.
type HealthMetric struct {
	// Name is the health-check identifier (e.g. "crash_rate").
	Name string `json:"name"`

	// Value is the averaged metric value read from the monitoring backend.
	Value float64 `json:"value"`

	// Threshold is the healthiness boundary for this check.
	Threshold float64 `json:"threshold"`

	// Comparison is the direction Value is compared against Threshold.
	Comparison Comparison `json:"comparison"`

	// Healthy is the derived classification of Value against Threshold.
	Healthy bool `json:"healthy"`
}

// =============================================================================
// STAGES AND RESULTS
// =============================================================================

// Stage is one named unit of work in a deployment run: a target rollout
// percentage plus an optional monitoring window. Stages are derived from
// Config (custom gradual ramps, canary percentage) or built-in defaults.
type Stage struct {
	// Name identifies the stage in logs and the final report.
	Name string

	// Percentage is the rollout percentage this stage targets.
	Percentage int

	// MonitorFor is how long the stage monitors health after deploying.
	// Zero means the stage has no monitoring window.
	MonitorFor time.Duration
}

// StageResult is the outcome of one executed stage. Results accumulate
// into an ordered, append-only sequence for the whole run; that sequence
// is the audit trail handed to the report generator.
type StageResult struct {
	// Stage is the name of the executed stage.
	Stage string `json:"name"`

	// Status is the terminal status of the stage.
	Status Status `json:"status"`

	// Metrics holds the health metrics observed by the stage. Empty for
	// pure action stages (deploys, rollbacks).
	Metrics []HealthMetric `json:"metrics"`

	// Duration is the elapsed wall time of the stage as measured by the
	// run's Clock.
	Duration time.Duration `json:"-"`

	// Error carries the failure message for Failed stages, empty otherwise.
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the stage completed with StatusSuccess.
func (r StageResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// OverallSuccess reports whether every stage in a run sequence succeeded.
// An empty sequence is vacuously successful; Execute never produces one
// for a valid strategy.
func OverallSuccess(results []StageResult) bool {
	for _, r := range results {
		if r.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// TotalDuration sums the stage durations of a run sequence.
func TotalDuration(results []StageResult) time.Duration {
	var total time.Duration
	for _, r := range results {
		total += r.Duration
	}
	return total
}
