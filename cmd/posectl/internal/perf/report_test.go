// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package perf

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleComparison() []Result {
	return []Result{
		{
			Name: "app_startup_time", Category: "startup", Unit: "ms",
			BaselineValue: 2000, CurrentValue: 2100,
			ChangePercent: 5, IsRegression: false, Severity: SeverityNegligible,
		},
		{
			Name: "pose_detection_latency", Category: "ai", Unit: "ms",
			BaselineValue: 40, CurrentValue: 70,
			ChangePercent: 75, IsRegression: true, Severity: SeverityCritical,
		},
		{
			Name: "peak_memory_usage", Category: "memory", Unit: "MB",
			BaselineValue: 400, CurrentValue: 320,
			ChangePercent: -20, IsRegression: false, Severity: SeverityMinor,
		},
	}
}

func TestBuildReport_Summary(t *testing.T) {
	report := BuildReport(sampleComparison(), 10, time.Now())

	s := report.Summary
	if s.TotalMetrics != 3 {
		t.Errorf("TotalMetrics = %d, want 3", s.TotalMetrics)
	}
	if s.Regressions != 1 {
		t.Errorf("Regressions = %d, want 1", s.Regressions)
	}
	if s.Improvements != 1 {
		t.Errorf("Improvements = %d, want 1", s.Improvements)
	}
	if s.Stable != 1 {
		t.Errorf("Stable = %d, want 1", s.Stable)
	}
}

func TestBuildReport_SortsRegressionsFirst(t *testing.T) {
	report := BuildReport(sampleComparison(), 10, time.Now())

	if !report.Metrics[0].IsRegression {
		t.Errorf("first metric = %+v, want the regression", report.Metrics[0])
	}
	if report.Metrics[0].Name != "pose_detection_latency" {
		t.Errorf("first metric = %q, want pose_detection_latency", report.Metrics[0].Name)
	}
}

func TestReport_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "performance-comparison.json")
	report := BuildReport(sampleComparison(), 10, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	if err := report.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Summary.Regressions != 1 {
		t.Errorf("decoded regressions = %d, want 1", decoded.Summary.Regressions)
	}
}

func TestReport_PrintSummary(t *testing.T) {
	report := BuildReport(sampleComparison(), 10, time.Now())

	var buf bytes.Buffer
	report.PrintSummary(&buf)
	out := buf.String()

	for _, want := range []string{
		"Metrics compared: 3",
		"Regressions:      1",
		"pose_detection_latency",
		"critical",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
