// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	logLevel string
	logDir   string

	// deploy
	deployStrategy    string
	deployVersion     string
	deployEnvironment string
	deployConfigPath  string
	packageName       string
	projectID         string
	credentialsFile   string
	historyDir        string
	reportPath        string
	reportUploadURL   string
	dryRun            bool

	// quality-gates
	sonarToken            string
	sonarProject          string
	apkPath               string
	dexcountPath          string
	jacocoReports         []string
	coverageThreshold     float64
	complexityThreshold   float64
	duplicationThreshold  float64
	securityRating        string
	maintainabilityRating string
	qualityReportPath     string

	// perf-compare
	currentResultsURL  string
	baselineResultsURL string
	perfThreshold      float64
	perfReportPath     string
	failOnRegression   bool

	// history
	historyLimit int

	rootCmd = &cobra.Command{
		Use:   "posectl",
		Short: "CI/CD release tooling for the Pose Coach Android app",
		Long: `posectl drives the Pose Coach release pipeline: progressive
				Play Store deployments with health-check-driven rollback,
				quality gate enforcement, and performance regression checks.`,
	}

	deployCmd = &cobra.Command{
		Use:   "deploy",
		Short: "Run a progressive deployment to the Play Store",
		Run:   runDeploy, // Defined in cmd_deploy.go
	}

	qualityGatesCmd = &cobra.Command{
		Use:   "quality-gates",
		Short: "Evaluate the release quality gates",
		Run:   runQualityGates, // Defined in cmd_quality.go
	}

	perfCompareCmd = &cobra.Command{
		Use:   "perf-compare",
		Short: "Compare performance results against the baseline build",
		Run:   runPerfCompare, // Defined in cmd_perf.go
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded deployment runs",
		Run:   runHistory, // Defined in cmd_history.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for JSON log files (disabled when empty)")

	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringVar(&deployStrategy, "strategy", "canary",
		"Deployment strategy: immediate, canary, blue_green, or gradual")
	deployCmd.Flags().StringVar(&deployVersion, "version", "",
		"Release version to deploy (required)")
	deployCmd.Flags().StringVar(&deployEnvironment, "environment", "production",
		"Target environment name for logs and the report")
	deployCmd.Flags().StringVar(&deployConfigPath, "config", "",
		"Deployment configuration YAML (built-in defaults when empty)")
	deployCmd.Flags().StringVar(&packageName, "package-name", "app.posecoach.android",
		"Android application id")
	deployCmd.Flags().StringVar(&projectID, "project-id", "",
		"GCP project holding the health metrics")
	deployCmd.Flags().StringVar(&credentialsFile, "credentials", "",
		"Service account key path (application default credentials when empty)")
	deployCmd.Flags().StringVar(&historyDir, "history-dir", defaultHistoryDir(),
		"Deployment history database directory")
	deployCmd.Flags().StringVar(&reportPath, "report", "deployment-report.json",
		"Deployment report output path")
	deployCmd.Flags().StringVar(&reportUploadURL, "upload-report", "",
		"gs:// destination for the report (skipped when empty)")
	deployCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Simulate the run against in-memory collaborators without real waits")
	_ = deployCmd.MarkFlagRequired("version")

	rootCmd.AddCommand(qualityGatesCmd)
	qualityGatesCmd.Flags().StringVar(&sonarToken, "sonar-token", "",
		"SonarCloud token (falls back to local Jacoco coverage when empty)")
	qualityGatesCmd.Flags().StringVar(&sonarProject, "sonar-project", "pose-coach-android",
		"SonarCloud project key")
	qualityGatesCmd.Flags().StringVar(&apkPath, "apk",
		"app/build/outputs/apk/release/app-release.apk", "Release APK path")
	qualityGatesCmd.Flags().StringVar(&dexcountPath, "dexcount", "",
		"dexcount summary path for the method-count gate")
	qualityGatesCmd.Flags().StringSliceVar(&jacocoReports, "jacoco", defaultJacocoReports(),
		"Jacoco XML report paths for local coverage")
	qualityGatesCmd.Flags().Float64Var(&coverageThreshold, "coverage-threshold", 85.0,
		"Minimum code coverage percentage")
	qualityGatesCmd.Flags().Float64Var(&complexityThreshold, "complexity-threshold", 10.0,
		"Maximum average complexity per 1000 lines")
	qualityGatesCmd.Flags().Float64Var(&duplicationThreshold, "duplication-threshold", 5.0,
		"Maximum duplicated-lines percentage")
	qualityGatesCmd.Flags().StringVar(&securityRating, "security-rating", "A",
		"Worst acceptable security rating (A-E)")
	qualityGatesCmd.Flags().StringVar(&maintainabilityRating, "maintainability-rating", "A",
		"Worst acceptable maintainability rating (A-E)")
	qualityGatesCmd.Flags().StringVar(&qualityReportPath, "report", "quality-gates-report.json",
		"Quality report output path")

	rootCmd.AddCommand(perfCompareCmd)
	perfCompareCmd.Flags().StringVar(&currentResultsURL, "current-results", "",
		"Current performance results: gs:// prefix or local JSON path (required)")
	perfCompareCmd.Flags().StringVar(&baselineResultsURL, "baseline-results", "",
		"Baseline performance results: gs:// prefix or local JSON path (required)")
	perfCompareCmd.Flags().Float64Var(&perfThreshold, "threshold", 10.0,
		"Regression threshold percentage")
	perfCompareCmd.Flags().StringVar(&perfReportPath, "output", "performance-comparison.json",
		"Comparison report output path")
	perfCompareCmd.Flags().BoolVar(&failOnRegression, "fail-on-regression", false,
		"Exit non-zero when regressions are found")
	perfCompareCmd.Flags().StringVar(&credentialsFile, "credentials", "",
		"Service account key path for gs:// results")
	_ = perfCompareCmd.MarkFlagRequired("current-results")
	_ = perfCompareCmd.MarkFlagRequired("baseline-results")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyDir, "history-dir", defaultHistoryDir(),
		"Deployment history database directory")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20,
		"Maximum runs to show (0 shows everything)")
}
