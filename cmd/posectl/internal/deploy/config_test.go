// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployment.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// =============================================================================
// Defaults Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CanaryPercentage != 5 {
		t.Errorf("CanaryPercentage = %d, want 5", cfg.CanaryPercentage)
	}
	if cfg.MonitoringDuration() != 30*time.Minute {
		t.Errorf("MonitoringDuration() = %v, want 30m", cfg.MonitoringDuration())
	}
	if cfg.PropagationTime() != 5*time.Minute {
		t.Errorf("PropagationTime() = %v, want 5m", cfg.PropagationTime())
	}
	if cfg.CheckInterval() != 5*time.Minute {
		t.Errorf("CheckInterval() = %v, want 5m", cfg.CheckInterval())
	}
	if len(cfg.HealthChecks) != 6 {
		t.Errorf("HealthChecks = %v, want all six checks", cfg.HealthChecks)
	}

	wantStages := []StageConfig{
		{Percentage: 1, DurationHours: 2},
		{Percentage: 5, DurationHours: 8},
		{Percentage: 25, DurationHours: 24},
		{Percentage: 50, DurationHours: 48},
		{Percentage: 100, DurationHours: 168},
	}
	if len(cfg.Stages) != len(wantStages) {
		t.Fatalf("Stages = %+v, want %+v", cfg.Stages, wantStages)
	}
	for i, want := range wantStages {
		if cfg.Stages[i] != want {
			t.Errorf("Stages[%d] = %+v, want %+v", i, cfg.Stages[i], want)
		}
	}
}

func TestNormalize_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		CanaryPercentage:          10,
		MonitoringDurationSeconds: 600,
		Stages:                    []StageConfig{{Percentage: 50, DurationHours: 1}},
		HealthChecks:              []string{"crash_rate"},
	}
	cfg.Normalize()

	if cfg.CanaryPercentage != 10 {
		t.Errorf("CanaryPercentage = %d, want 10", cfg.CanaryPercentage)
	}
	if cfg.MonitoringDurationSeconds != 600 {
		t.Errorf("MonitoringDurationSeconds = %d, want 600", cfg.MonitoringDurationSeconds)
	}
	if len(cfg.Stages) != 1 || cfg.Stages[0].Percentage != 50 {
		t.Errorf("Stages = %+v, explicit ramp replaced", cfg.Stages)
	}
	if len(cfg.HealthChecks) != 1 {
		t.Errorf("HealthChecks = %v, explicit list replaced", cfg.HealthChecks)
	}
	// Untouched zero fields still get defaults.
	if cfg.PropagationTimeSeconds != 300 {
		t.Errorf("PropagationTimeSeconds = %d, want 300", cfg.PropagationTimeSeconds)
	}
}

// =============================================================================
// Rollback Trigger Tests
// =============================================================================

func TestConfig_RollbackThreshold(t *testing.T) {
	cfg := Config{RollbackTriggers: map[string]float64{
		"crash_rate_threshold": 2.5,
	}}

	if got := cfg.rollbackThreshold("crash_rate"); got != 2.5 {
		t.Errorf("rollbackThreshold(crash_rate) = %v, want 2.5", got)
	}
	if got := cfg.rollbackThreshold("error_rate"); got != 5.0 {
		t.Errorf("rollbackThreshold(error_rate) = %v, want default 5.0", got)
	}
}

func TestConfig_MaxUnhealthyMetrics(t *testing.T) {
	tests := []struct {
		name     string
		triggers map[string]float64
		want     int
	}{
		{"default", nil, 3},
		{"override", map[string]float64{"max_unhealthy_metrics": 2}, 2},
		{"zero falls back to default", map[string]float64{"max_unhealthy_metrics": 0}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{RollbackTriggers: tt.triggers}
			if got := cfg.maxUnhealthyMetrics(); got != tt.want {
				t.Errorf("maxUnhealthyMetrics() = %d, want %d", got, tt.want)
			}
		})
	}
}

// =============================================================================
// LoadConfig Tests
// =============================================================================

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if cfg.CanaryPercentage != 5 {
		t.Errorf("CanaryPercentage = %d, want default 5", cfg.CanaryPercentage)
	}
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
canary_percentage: 10
monitoring_duration: 900
check_interval: 60
health_checks:
  - crash_rate
  - error_rate
rollback_triggers:
  crash_rate_threshold: 2.0
  max_unhealthy_metrics: 2
stages:
  - percentage: 10
    duration_hours: 4
  - percentage: 100
    duration_hours: 0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.CanaryPercentage != 10 {
		t.Errorf("CanaryPercentage = %d, want 10", cfg.CanaryPercentage)
	}
	if cfg.MonitoringDuration() != 15*time.Minute {
		t.Errorf("MonitoringDuration() = %v, want 15m", cfg.MonitoringDuration())
	}
	if cfg.CheckInterval() != time.Minute {
		t.Errorf("CheckInterval() = %v, want 1m", cfg.CheckInterval())
	}
	if len(cfg.HealthChecks) != 2 {
		t.Errorf("HealthChecks = %v, want two entries", cfg.HealthChecks)
	}
	if cfg.rollbackThreshold("crash_rate") != 2.0 {
		t.Errorf("crash_rate threshold = %v, want 2.0", cfg.rollbackThreshold("crash_rate"))
	}
	if len(cfg.Stages) != 2 || cfg.Stages[1].Percentage != 100 {
		t.Errorf("Stages = %+v", cfg.Stages)
	}
	// Unspecified fields are normalized.
	if cfg.PropagationTimeSeconds != 300 {
		t.Errorf("PropagationTimeSeconds = %d, want default 300", cfg.PropagationTimeSeconds)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() with missing file should fail")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "canary_percentage: [not a number")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() with malformed YAML should fail")
	}
}

func TestLoadConfig_RejectsInvalidStagePercentage(t *testing.T) {
	path := writeConfig(t, `
stages:
  - percentage: 150
    duration_hours: 1
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() with percentage > 100 should fail validation")
	}
}
