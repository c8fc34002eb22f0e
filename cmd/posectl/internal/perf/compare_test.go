// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"testing"
)

const sampleResults = `{
	"app_startup": {"cold_start_ms": 2100},
	"memory": {"peak_mb": 310},
	"graphics": {"avg_fps": 58},
	"ai_inference": {"avg_latency_ms": 45},
	"battery": {"drain_percent_per_hour": 8},
	"network": {"avg_response_ms": 240}
}`

func TestParseResults(t *testing.T) {
	raw, err := ParseResults([]byte(sampleResults))
	if err != nil {
		t.Fatalf("ParseResults() error = %v", err)
	}

	metrics := raw.Metrics()
	if len(metrics) != 6 {
		t.Fatalf("Metrics() = %d entries, want 6", len(metrics))
	}

	byName := map[string]Metric{}
	for _, m := range metrics {
		byName[m.Name] = m
	}
	if byName["app_startup_time"].Value != 2100 {
		t.Errorf("app_startup_time = %v, want 2100", byName["app_startup_time"].Value)
	}
	if byName["average_fps"].Category != "rendering" {
		t.Errorf("average_fps category = %q, want rendering", byName["average_fps"].Category)
	}
	if byName["pose_detection_latency"].Threshold != 200 {
		t.Errorf("pose_detection_latency threshold = %v, want 200",
			byName["pose_detection_latency"].Threshold)
	}
}

func TestParseResults_MissingSections(t *testing.T) {
	raw, err := ParseResults([]byte(`{"memory": {"peak_mb": 300}}`))
	if err != nil {
		t.Fatalf("ParseResults() error = %v", err)
	}
	metrics := raw.Metrics()
	if len(metrics) != 1 || metrics[0].Name != "peak_memory_usage" {
		t.Errorf("Metrics() = %+v, want only peak_memory_usage", metrics)
	}
}

func TestParseResults_Malformed(t *testing.T) {
	if _, err := ParseResults([]byte("not json")); err == nil {
		t.Fatal("ParseResults() with malformed input should fail")
	}
}

func TestCompare_RegressionDirections(t *testing.T) {
	baseline := []Metric{
		{Name: "app_startup_time", Category: "startup", Value: 2000},
		{Name: "average_fps", Category: "rendering", Value: 60},
	}

	tests := []struct {
		name           string
		current        []Metric
		wantRegression bool
		wantChange     float64
	}{
		{
			name:           "startup slower is a regression",
			current:        []Metric{{Name: "app_startup_time", Category: "startup", Value: 2500}},
			wantRegression: true,
			wantChange:     25,
		},
		{
			name:           "startup faster is an improvement",
			current:        []Metric{{Name: "app_startup_time", Category: "startup", Value: 1600}},
			wantRegression: false,
			wantChange:     -20,
		},
		{
			name:           "fps dropping is a regression",
			current:        []Metric{{Name: "average_fps", Category: "rendering", Value: 42}},
			wantRegression: true,
			wantChange:     -30,
		},
		{
			name:           "fps rising is an improvement",
			current:        []Metric{{Name: "average_fps", Category: "rendering", Value: 72}},
			wantRegression: false,
			wantChange:     20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Compare(tt.current, baseline, 10)
			if len(results) != 1 {
				t.Fatalf("Compare() = %d results, want 1", len(results))
			}
			r := results[0]
			if r.IsRegression != tt.wantRegression {
				t.Errorf("IsRegression = %v, want %v", r.IsRegression, tt.wantRegression)
			}
			if r.ChangePercent != tt.wantChange {
				t.Errorf("ChangePercent = %v, want %v", r.ChangePercent, tt.wantChange)
			}
		})
	}
}

func TestCompare_WithinThresholdIsStable(t *testing.T) {
	baseline := []Metric{{Name: "api_response_time", Category: "network", Value: 200}}
	current := []Metric{{Name: "api_response_time", Category: "network", Value: 215}}

	results := Compare(current, baseline, 10)
	if results[0].IsRegression {
		t.Error("7.5% slowdown flagged as regression against a 10% threshold")
	}
}

func TestCompare_SkipsMetricsWithoutBaseline(t *testing.T) {
	current := []Metric{
		{Name: "app_startup_time", Category: "startup", Value: 2000},
		{Name: "battery_drain_rate", Category: "battery", Value: 9},
	}
	baseline := []Metric{{Name: "app_startup_time", Category: "startup", Value: 2000}}

	results := Compare(current, baseline, 10)
	if len(results) != 1 {
		t.Fatalf("Compare() = %d results, want 1 (no baseline for battery)", len(results))
	}
}

func TestCompare_SkipsZeroBaseline(t *testing.T) {
	current := []Metric{{Name: "peak_memory_usage", Category: "memory", Value: 300}}
	baseline := []Metric{{Name: "peak_memory_usage", Category: "memory", Value: 0}}

	if results := Compare(current, baseline, 10); len(results) != 0 {
		t.Errorf("Compare() = %+v, want nothing for a zero baseline", results)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		change float64
		want   string
	}{
		{60, SeverityCritical},
		{-60, SeverityCritical},
		{30, SeverityMajor},
		{15, SeverityMinor},
		{5, SeverityNegligible},
		{0, SeverityNegligible},
	}
	for _, tt := range tests {
		if got := severity(tt.change); got != tt.want {
			t.Errorf("severity(%v) = %q, want %q", tt.change, got, tt.want)
		}
	}
}
