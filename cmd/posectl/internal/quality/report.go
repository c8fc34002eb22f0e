// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quality

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Report is the JSON document written after a gate evaluation.
type Report struct {
	Timestamp        time.Time     `json:"timestamp"`
	Summary          ReportSummary `json:"summary"`
	Gates            []Gate        `json:"gates"`
	CriticalFailures []string      `json:"critical_failures"`
	Warnings         []string      `json:"warnings"`
}

// ReportSummary aggregates the gate outcomes.
type ReportSummary struct {
	TotalGates       int  `json:"total_gates"`
	Passed           int  `json:"passed"`
	Failed           int  `json:"failed"`
	CriticalFailures int  `json:"critical_failures"`
	OverallPassed    bool `json:"overall_passed"`
}

// BuildReport assembles the report for an evaluation result.
func BuildReport(result Result, now time.Time) Report {
	passed := 0
	for _, g := range result.Gates {
		if g.Passed {
			passed++
		}
	}
	return Report{
		Timestamp: now,
		Summary: ReportSummary{
			TotalGates:       len(result.Gates),
			Passed:           passed,
			Failed:           len(result.Gates) - passed,
			CriticalFailures: len(result.CriticalFailures),
			OverallPassed:    result.OverallPassed,
		},
		Gates:            result.Gates,
		CriticalFailures: result.CriticalFailures,
		Warnings:         result.Warnings,
	}
}

// Write saves the report as indented JSON.
func (r Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode quality report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write quality report %s: %w", path, err)
	}
	return nil
}

// PrintSummary writes a human-readable gate summary.
func (r Report) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\nQuality Gates Summary\n")
	fmt.Fprintf(w, "==================================================\n")
	if r.Summary.OverallPassed {
		fmt.Fprintf(w, "All critical quality gates PASSED\n")
	} else {
		fmt.Fprintf(w, "Some critical quality gates FAILED\n")
	}
	fmt.Fprintf(w, "Gates: %d total, %d passed, %d failed\n\n",
		r.Summary.TotalGates, r.Summary.Passed, r.Summary.Failed)

	for _, g := range r.Gates {
		marker := "ok  "
		if !g.Passed {
			marker = "FAIL"
		}
		critical := ""
		if g.Critical {
			critical = " (critical)"
		}
		fmt.Fprintf(w, "  [%s] %s: %.1f%s (threshold: %.1f%s)%s\n",
			marker, g.Name, g.Value, g.Unit, g.Threshold, g.Unit, critical)
	}

	if len(r.CriticalFailures) > 0 {
		fmt.Fprintf(w, "\nCritical failures:\n")
		for _, f := range r.CriticalFailures {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}
