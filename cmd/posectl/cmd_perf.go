// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/posecoach/posectl/cmd/posectl/internal/artifacts"
	"github.com/posecoach/posectl/cmd/posectl/internal/perf"
	"github.com/posecoach/posectl/pkg/logging"
)

// resultsFileName is appended to gs:// result locations that point at
// a run directory rather than a specific file.
const resultsFileName = "performance-metrics.json"

// runPerfCompare compares the current build's benchmark results against
// the baseline and writes the comparison report. Regressions only fail
// the run when --fail-on-regression is set.
func runPerfCompare(cmd *cobra.Command, args []string) {
	log := newLogger("perf-compare")
	defer log.Close()

	ctx := context.Background()

	current, err := loadResults(ctx, log, currentResultsURL)
	if err != nil {
		log.Error("failed to load current results", "source", currentResultsURL, "error", err)
		os.Exit(1)
	}
	baseline, err := loadResults(ctx, log, baselineResultsURL)
	if err != nil {
		log.Error("failed to load baseline results", "source", baselineResultsURL, "error", err)
		os.Exit(1)
	}

	results := perf.Compare(current.Metrics(), baseline.Metrics(), perfThreshold)
	report := perf.BuildReport(results, perfThreshold, time.Now().UTC())
	report.PrintSummary(os.Stdout)
	if err := report.Write(perfReportPath); err != nil {
		log.Error("failed to write comparison report", "error", err)
		os.Exit(1)
	}
	log.Info("performance comparison written", "path", perfReportPath,
		"regressions", report.Summary.Regressions)

	if failOnRegression && report.Summary.Regressions > 0 {
		os.Exit(1)
	}
}

// loadResults reads a performance results JSON document from a gs://
// location or a local path.
func loadResults(ctx context.Context, log *logging.Logger, source string) (perf.RawResults, error) {
	var data []byte
	if strings.HasPrefix(source, "gs://") {
		if !strings.HasSuffix(source, ".json") {
			source = strings.TrimSuffix(source, "/") + "/" + resultsFileName
		}
		store, err := artifacts.New(ctx, credentialsFile, log)
		if err != nil {
			return perf.RawResults{}, err
		}
		defer store.Close()
		data, err = store.Download(ctx, source)
		if err != nil {
			return perf.RawResults{}, err
		}
	} else {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return perf.RawResults{}, fmt.Errorf("failed to read results file: %w", err)
		}
	}
	return perf.ParseResults(data)
}
