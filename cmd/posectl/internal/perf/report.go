// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"
)

// Report is the JSON document written after a comparison run.
type Report struct {
	Timestamp time.Time     `json:"timestamp"`
	Summary   ReportSummary `json:"summary"`
	Metrics   []Result      `json:"metrics"`
}

// ReportSummary aggregates the comparison outcomes.
type ReportSummary struct {
	TotalMetrics int `json:"total_metrics"`
	Regressions  int `json:"regressions"`
	Improvements int `json:"improvements"`
	Stable       int `json:"stable"`
}

// severityRank orders results worst-first within the report.
var severityRank = map[string]int{
	SeverityCritical:   0,
	SeverityMajor:      1,
	SeverityMinor:      2,
	SeverityNegligible: 3,
}

// BuildReport assembles the report for a comparison. Metrics are sorted
// regressions-first, then by severity.
func BuildReport(results []Result, thresholdPercent float64, now time.Time) Report {
	summary := ReportSummary{TotalMetrics: len(results)}
	for _, r := range results {
		if r.IsRegression {
			summary.Regressions++
		} else if r.ChangePercent < 0 {
			summary.Improvements++
		}
		if math.Abs(r.ChangePercent) <= thresholdPercent {
			summary.Stable++
		}
	}

	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsRegression != sorted[j].IsRegression {
			return sorted[i].IsRegression
		}
		return severityRank[sorted[i].Severity] < severityRank[sorted[j].Severity]
	})

	return Report{Timestamp: now, Summary: summary, Metrics: sorted}
}

// Write saves the report as indented JSON.
func (r Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode performance report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance report %s: %w", path, err)
	}
	return nil
}

// PrintSummary writes a human-readable comparison summary.
func (r Report) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\nPerformance Comparison Summary\n")
	fmt.Fprintf(w, "==================================================\n")
	fmt.Fprintf(w, "Metrics compared: %d\n", r.Summary.TotalMetrics)
	fmt.Fprintf(w, "Regressions:      %d\n", r.Summary.Regressions)
	fmt.Fprintf(w, "Improvements:     %d\n", r.Summary.Improvements)
	fmt.Fprintf(w, "Stable:           %d\n\n", r.Summary.Stable)

	for _, m := range r.Metrics {
		marker := "ok  "
		if m.IsRegression {
			marker = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %s: %+.1f%% (%.1f -> %.1f %s, %s)\n",
			marker, m.Name, m.ChangePercent,
			m.BaselineValue, m.CurrentValue, m.Unit, m.Severity)
	}
}
