// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package perf compares device-lab performance results between a
// release candidate and the baseline build.
//
// Input documents are the performance-metrics.json files produced by
// the instrumentation run: one section per benchmark area (startup,
// memory, graphics, AI inference, battery, network). A metric regresses
// when it moves past the configured threshold percentage in its bad
// direction: up for everything except frame rate, where down is bad.
package perf

import (
	"encoding/json"
	"fmt"
	"math"
)

// =============================================================================
// METRICS
// =============================================================================

// Metric is one benchmark observation.
type Metric struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Threshold float64 `json:"threshold"`
	Category  string  `json:"category"`
}

// RawResults mirrors the performance-metrics.json document. Sections
// are optional; absent sections contribute no metric.
type RawResults struct {
	AppStartup *struct {
		ColdStartMS float64 `json:"cold_start_ms"`
	} `json:"app_startup"`
	Memory *struct {
		PeakMB float64 `json:"peak_mb"`
	} `json:"memory"`
	Graphics *struct {
		AvgFPS float64 `json:"avg_fps"`
	} `json:"graphics"`
	AIInference *struct {
		AvgLatencyMS float64 `json:"avg_latency_ms"`
	} `json:"ai_inference"`
	Battery *struct {
		DrainPercentPerHour float64 `json:"drain_percent_per_hour"`
	} `json:"battery"`
	Network *struct {
		AvgResponseMS float64 `json:"avg_response_ms"`
	} `json:"network"`
}

// ParseResults decodes a performance-metrics.json document.
func ParseResults(data []byte) (RawResults, error) {
	var raw RawResults
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawResults{}, fmt.Errorf("failed to parse performance results: %w", err)
	}
	return raw, nil
}

// Metrics flattens the raw document into the benchmark metrics.
func (r RawResults) Metrics() []Metric {
	var metrics []Metric
	if r.AppStartup != nil {
		metrics = append(metrics, Metric{
			Name: "app_startup_time", Value: r.AppStartup.ColdStartMS,
			Unit: "ms", Threshold: 3000, Category: "startup",
		})
	}
	if r.Memory != nil {
		metrics = append(metrics, Metric{
			Name: "peak_memory_usage", Value: r.Memory.PeakMB,
			Unit: "MB", Threshold: 500, Category: "memory",
		})
	}
	if r.Graphics != nil {
		metrics = append(metrics, Metric{
			Name: "average_fps", Value: r.Graphics.AvgFPS,
			Unit: "fps", Threshold: 30, Category: "rendering",
		})
	}
	if r.AIInference != nil {
		metrics = append(metrics, Metric{
			Name: "pose_detection_latency", Value: r.AIInference.AvgLatencyMS,
			Unit: "ms", Threshold: 200, Category: "ai",
		})
	}
	if r.Battery != nil {
		metrics = append(metrics, Metric{
			Name: "battery_drain_rate", Value: r.Battery.DrainPercentPerHour,
			Unit: "%/hour", Threshold: 15, Category: "battery",
		})
	}
	if r.Network != nil {
		metrics = append(metrics, Metric{
			Name: "api_response_time", Value: r.Network.AvgResponseMS,
			Unit: "ms", Threshold: 1000, Category: "network",
		})
	}
	return metrics
}

// =============================================================================
// COMPARISON
// =============================================================================

// Severity bands for the absolute change percentage.
const (
	SeverityCritical   = "critical"
	SeverityMajor      = "major"
	SeverityMinor      = "minor"
	SeverityNegligible = "negligible"
)

// Result is one compared metric.
type Result struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Unit          string  `json:"unit"`
	BaselineValue float64 `json:"baseline_value"`
	CurrentValue  float64 `json:"current_value"`
	ChangePercent float64 `json:"change_percent"`
	IsRegression  bool    `json:"is_regression"`
	Severity      string  `json:"severity"`
}

// Compare evaluates current metrics against their baseline
// counterparts. Metrics without a baseline are skipped; a zero baseline
// cannot produce a percentage and is skipped too.
//
// # Inputs
//
//   - current, baseline: Flattened metric sets from the two builds.
//   - thresholdPercent: Movement beyond this (in the metric's bad
//     direction) counts as a regression. The comparison summary also
//     uses it as the stability band.
func Compare(current, baseline []Metric, thresholdPercent float64) []Result {
	byName := make(map[string]Metric, len(baseline))
	for _, m := range baseline {
		byName[m.Name] = m
	}

	var results []Result
	for _, cur := range current {
		base, ok := byName[cur.Name]
		if !ok || base.Value == 0 {
			continue
		}

		change := (cur.Value - base.Value) / base.Value * 100
		results = append(results, Result{
			Name:          cur.Name,
			Category:      cur.Category,
			Unit:          cur.Unit,
			BaselineValue: base.Value,
			CurrentValue:  cur.Value,
			ChangePercent: change,
			IsRegression:  isRegression(cur.Category, change, thresholdPercent),
			Severity:      severity(change),
		})
	}
	return results
}

// lowerIsBetter categories regress when the value goes up. Rendering
// (frame rate) is the inverse.
var lowerIsBetter = map[string]bool{
	"startup": true,
	"memory":  true,
	"ai":      true,
	"battery": true,
	"network": true,
}

func isRegression(category string, changePercent, thresholdPercent float64) bool {
	if lowerIsBetter[category] {
		return changePercent > thresholdPercent
	}
	return changePercent < -thresholdPercent
}

func severity(changePercent float64) string {
	switch abs := math.Abs(changePercent); {
	case abs > 50:
		return SeverityCritical
	case abs > 25:
		return SeverityMajor
	case abs > 10:
		return SeverityMinor
	default:
		return SeverityNegligible
	}
}
