// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/posecoach/posectl/cmd/posectl/internal/quality"
)

// runQualityGates evaluates the release quality gates and exits
// non-zero on any critical failure. Warnings are reported but never
// block the release.
func runQualityGates(cmd *cobra.Command, args []string) {
	log := newLogger("quality-gates")
	defer log.Close()

	ctx := context.Background()

	var measures quality.Measures
	if sonarToken != "" {
		client := quality.NewSonarClient(quality.SonarConfig{
			ProjectKey: sonarProject,
			Token:      sonarToken,
		}, nil, log)
		m, err := client.FetchMeasures(ctx)
		if err != nil {
			log.Error("failed to fetch sonar measures", "error", err)
			os.Exit(1)
		}
		measures = m
	} else {
		log.Info("no sonar token provided, falling back to local coverage reports")
		coverage, err := quality.CoverageFromJacoco(jacocoReports)
		if err != nil {
			log.Error("failed to read coverage reports", "error", err)
			os.Exit(1)
		}
		measures.Coverage = coverage
	}

	build := quality.CollectBuildMetrics(apkPath, dexcountPath)

	result := quality.Evaluate(measures, build, quality.Thresholds{
		Coverage:              coverageThreshold,
		Complexity:            complexityThreshold,
		Duplication:           duplicationThreshold,
		SecurityRating:        securityRating,
		MaintainabilityRating: maintainabilityRating,
	})

	report := quality.BuildReport(result, time.Now().UTC())
	report.PrintSummary(os.Stdout)
	if err := report.Write(qualityReportPath); err != nil {
		log.Error("failed to write quality report", "error", err)
		os.Exit(1)
	}
	log.Info("quality gate report written", "path", qualityReportPath)

	if !result.OverallPassed {
		os.Exit(1)
	}
}
