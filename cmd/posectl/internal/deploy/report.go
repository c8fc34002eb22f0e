// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DEPLOYMENT REPORT
// =============================================================================

// Report is the JSON document emitted at the end of a deployment run.
// It is the exact ordered audit trail of the run: pipelines gate on
// Deployment.OverallSuccess and archive the file as a build artifact.
type Report struct {
	Deployment ReportHeader  `json:"deployment"`
	Stages     []ReportStage `json:"stages"`
}

// ReportHeader summarizes the run.
type ReportHeader struct {
	// RunID uniquely identifies this deployment run.
	RunID string `json:"run_id"`

	Strategy    Strategy `json:"strategy"`
	Version     string   `json:"version"`
	Environment string   `json:"environment"`

	// OverallSuccess is true iff every recorded stage succeeded.
	OverallSuccess bool `json:"overall_success"`

	// TotalDurationSeconds is the sum of all stage durations.
	TotalDurationSeconds float64 `json:"total_duration_seconds"`

	Timestamp time.Time `json:"timestamp"`
}

// ReportStage is one stage result in wire form.
type ReportStage struct {
	Name            string         `json:"name"`
	Status          Status         `json:"status"`
	DurationSeconds float64        `json:"duration_seconds"`
	Metrics         []ReportMetric `json:"metrics"`
	Error           string         `json:"error,omitempty"`
}

// ReportMetric is one health observation in wire form.
type ReportMetric struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Healthy   bool    `json:"healthy"`
}

// BuildReport assembles the report for a finished run.
func BuildReport(results []StageResult, strategy Strategy, version, environment string, now time.Time) Report {
	stages := make([]ReportStage, len(results))
	for i, r := range results {
		metrics := make([]ReportMetric, len(r.Metrics))
		for j, m := range r.Metrics {
			metrics[j] = ReportMetric{
				Name:      m.Name,
				Value:     m.Value,
				Threshold: m.Threshold,
				Healthy:   m.Healthy,
			}
		}
		stages[i] = ReportStage{
			Name:            r.Stage,
			Status:          r.Status,
			DurationSeconds: r.Duration.Seconds(),
			Metrics:         metrics,
			Error:           r.Error,
		}
	}

	return Report{
		Deployment: ReportHeader{
			RunID:                uuid.NewString(),
			Strategy:             strategy,
			Version:              version,
			Environment:          environment,
			OverallSuccess:       OverallSuccess(results),
			TotalDurationSeconds: TotalDuration(results).Seconds(),
			Timestamp:            now,
		},
		Stages: stages,
	}
}

// Write saves the report as indented JSON.
func (r Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deployment report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write deployment report %s: %w", path, err)
	}
	return nil
}

// PrintSummary writes a human-readable run summary.
func (r Report) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\nProgressive Deployment Summary\n")
	fmt.Fprintf(w, "==================================================\n")
	fmt.Fprintf(w, "Strategy:        %s\n", r.Deployment.Strategy)
	fmt.Fprintf(w, "Version:         %s\n", r.Deployment.Version)
	fmt.Fprintf(w, "Environment:     %s\n", r.Deployment.Environment)
	if r.Deployment.OverallSuccess {
		fmt.Fprintf(w, "Overall Success: yes\n")
	} else {
		fmt.Fprintf(w, "Overall Success: NO\n")
	}
	fmt.Fprintf(w, "Total Duration:  %.1fs\n\n", r.Deployment.TotalDurationSeconds)

	fmt.Fprintf(w, "Stage Results:\n")
	for _, s := range r.Stages {
		marker := "ok  "
		if s.Status != StatusSuccess {
			marker = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %s: %s (%.1fs)\n", marker, s.Name, s.Status, s.DurationSeconds)
		if s.Error != "" {
			fmt.Fprintf(w, "         error: %s\n", s.Error)
		}
	}
}
