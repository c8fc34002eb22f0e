// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// StageConfig is one step of a gradual rollout ramp.
//
// Durations are configured in hours. The orchestrator converts them to
// time.Duration exactly once when it builds the stage sequence, so there
// is a single unit boundary in the whole package.
type StageConfig struct {
	// Percentage is the rollout percentage for this step.
	Percentage int `yaml:"percentage" validate:"min=1,max=100"`

	// DurationHours is the monitoring window after reaching Percentage.
	DurationHours int `yaml:"duration_hours" validate:"min=0"`
}

// Config is the user-supplied deployment configuration.
//
// All fields are optional in the YAML document; Normalize fills defaults
// for anything left at its zero value. Recognized rollback_triggers keys
// are "<metric>_threshold" overrides for the critical metrics and
// "max_unhealthy_metrics"; thresholds supplied for metrics outside the
// critical set are accepted but never consulted (see ShouldTriggerRollback).
type Config struct {
	// CanaryPercentage is the initial rollout percentage for canary runs.
	// Default: 5.
	CanaryPercentage int `yaml:"canary_percentage" validate:"min=0,max=100"`

	// MonitoringDurationSeconds is the canary monitoring window.
	// Default: 1800 (30 minutes).
	MonitoringDurationSeconds int `yaml:"monitoring_duration" validate:"min=0"`

	// Stages is the gradual rollout ramp. Default: 1% -> 5% -> 25% ->
	// 50% -> 100% with widening windows.
	Stages []StageConfig `yaml:"stages" validate:"dive"`

	// PropagationTimeSeconds is how long a deploy stage waits for a
	// rollout change to propagate before verifying it. Default: 300.
	PropagationTimeSeconds int `yaml:"propagation_time" validate:"min=0"`

	// CheckIntervalSeconds is the pause between monitoring polls.
	// Default: 300.
	CheckIntervalSeconds int `yaml:"check_interval" validate:"min=0"`

	// HealthChecks lists the checks evaluated during monitoring and the
	// blue/green health-check stage. Default: all six known checks.
	// Unknown names are tolerated and evaluate as healthy.
	HealthChecks []string `yaml:"health_checks"`

	// RollbackTriggers holds per-metric rollback threshold overrides
	// ("crash_rate_threshold", "error_rate_threshold") and the
	// "max_unhealthy_metrics" count.
	RollbackTriggers map[string]float64 `yaml:"rollback_triggers"`
}

const (
	defaultCanaryPercentage    = 5
	defaultMonitoringSeconds   = 1800
	defaultPropagationSeconds  = 300
	defaultCheckSeconds        = 300
	defaultRollbackThreshold   = 5.0
	defaultMaxUnhealthyMetrics = 3
)

// DefaultConfig returns the built-in deployment configuration: a 5%
// canary with a 30-minute window, the standard five-step gradual ramp,
// and all six health checks enabled.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero-valued fields with their defaults. It is called
// by LoadConfig and by the orchestrator constructor, so a zero Config is
// always usable.
func (c *Config) Normalize() {
	if c.CanaryPercentage == 0 {
		c.CanaryPercentage = defaultCanaryPercentage
	}
	if c.MonitoringDurationSeconds == 0 {
		c.MonitoringDurationSeconds = defaultMonitoringSeconds
	}
	if c.PropagationTimeSeconds == 0 {
		c.PropagationTimeSeconds = defaultPropagationSeconds
	}
	if c.CheckIntervalSeconds == 0 {
		c.CheckIntervalSeconds = defaultCheckSeconds
	}
	if len(c.Stages) == 0 {
		c.Stages = []StageConfig{
			{Percentage: 1, DurationHours: 2},
			{Percentage: 5, DurationHours: 8},
			{Percentage: 25, DurationHours: 24},
			{Percentage: 50, DurationHours: 48},
			{Percentage: 100, DurationHours: 168},
		}
	}
	if len(c.HealthChecks) == 0 {
		c.HealthChecks = KnownChecks()
	}
}

// MonitoringDuration returns the canary monitoring window as a Duration.
func (c Config) MonitoringDuration() time.Duration {
	return time.Duration(c.MonitoringDurationSeconds) * time.Second
}

// PropagationTime returns the post-deploy propagation wait as a Duration.
func (c Config) PropagationTime() time.Duration {
	return time.Duration(c.PropagationTimeSeconds) * time.Second
}

// CheckInterval returns the pause between monitoring polls as a Duration.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// rollbackThreshold returns the rollback threshold for a critical metric,
// honoring a "<metric>_threshold" override from RollbackTriggers.
func (c Config) rollbackThreshold(metric string) float64 {
	if v, ok := c.RollbackTriggers[metric+"_threshold"]; ok {
		return v
	}
	return defaultRollbackThreshold
}

// maxUnhealthyMetrics returns the unhealthy-count rollback trigger.
func (c Config) maxUnhealthyMetrics() int {
	if v, ok := c.RollbackTriggers["max_unhealthy_metrics"]; ok && v > 0 {
		return int(v)
	}
	return defaultMaxUnhealthyMetrics
}

// LoadConfig reads and validates a YAML deployment configuration.
//
// # Inputs
//
//   - path: Path to the config file. Empty returns DefaultConfig.
//
// # Outputs
//
//   - Config: Normalized configuration with defaults applied.
//   - error: Non-nil for unreadable files, malformed YAML, or values
//     rejected by validation (e.g. a stage percentage above 100).
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read deployment config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse deployment config %s: %w", path, err)
	}
	cfg.Normalize()

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid deployment config %s: %w", path, err)
	}
	return cfg, nil
}
