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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/posecoach/posectl/cmd/posectl/internal/artifacts"
	"github.com/posecoach/posectl/cmd/posectl/internal/deploy"
	"github.com/posecoach/posectl/cmd/posectl/internal/gcm"
	"github.com/posecoach/posectl/cmd/posectl/internal/history"
	"github.com/posecoach/posectl/cmd/posectl/internal/playstore"
	"github.com/posecoach/posectl/pkg/logging"
	"github.com/posecoach/posectl/pkg/validation"
)

// runDeploy executes one progressive deployment and exits non-zero
// when the run did not fully succeed, so the pipeline gate fails
// closed.
func runDeploy(cmd *cobra.Command, args []string) {
	log := newLogger("deploy")
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	version, err := validation.SanitizeVersion(deployVersion)
	if err != nil {
		log.Error("invalid release version", "error", err)
		os.Exit(1)
	}
	if err := validation.ValidatePackageName(packageName); err != nil {
		log.Error("invalid package name", "error", err)
		os.Exit(1)
	}

	cfg, err := deploy.LoadConfig(deployConfigPath)
	if err != nil {
		log.Error("invalid deployment configuration", "error", err)
		os.Exit(1)
	}
	strategy, err := deploy.ParseStrategy(deployStrategy)
	if err != nil {
		log.Error("invalid strategy", "error", err)
		os.Exit(1)
	}

	opts := deploy.Options{
		Config:      cfg,
		Logger:      log,
		Environment: deployEnvironment,
	}

	var store *history.Store
	if dryRun {
		log.Info("dry run: using simulated collaborators, no store calls will be made")
		opts.Rollout = &deploy.MockRolloutClient{}
		opts.Metrics = &deploy.MockMetricSource{Values: deploy.HealthyMetricValues()}
		opts.History = &deploy.MockVersionHistory{Version: "previous-stable"}
		opts.Clock = deploy.NewSimulatedClock(time.Now())
	} else {
		rollout, err := playstore.New(ctx, playstore.Config{
			PackageName:     packageName,
			CredentialsFile: credentialsFile,
		}, log)
		if err != nil {
			log.Error("failed to create play client", "error", err)
			os.Exit(1)
		}
		opts.Rollout = rollout

		metrics, err := gcm.New(ctx, projectID, credentialsFile, log)
		if err != nil {
			log.Error("failed to create monitoring client", "error", err)
			os.Exit(1)
		}
		defer metrics.Close()
		opts.Metrics = metrics

		store, err = history.Open(historyDir, log)
		if err != nil {
			log.Error("failed to open deployment history", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.History = store
	}

	orch, err := deploy.New(opts)
	if err != nil {
		log.Error("failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	results, err := orch.Execute(ctx, strategy, version)
	if err != nil {
		log.Error("deployment failed to start", "error", err)
		os.Exit(1)
	}

	report := deploy.BuildReport(results, strategy, version, deployEnvironment, time.Now().UTC())
	report.PrintSummary(os.Stdout)
	if err := report.Write(reportPath); err != nil {
		log.Error("failed to write deployment report", "error", err)
		os.Exit(1)
	}
	log.Info("deployment report written", "path", reportPath)

	if store != nil {
		rec := history.Record{
			RunID:       report.Deployment.RunID,
			Version:     version,
			Strategy:    string(strategy),
			Environment: deployEnvironment,
			Success:     report.Deployment.OverallSuccess,
			Timestamp:   report.Deployment.Timestamp,
		}
		if err := store.RecordRun(rec); err != nil {
			log.Error("failed to record deployment run", "error", err)
		}
	}

	if reportUploadURL != "" && !dryRun {
		uploadReport(ctx, log, reportPath, reportUploadURL)
	}

	if !report.Deployment.OverallSuccess {
		os.Exit(1)
	}
}

// uploadReport pushes the report to GCS; failures are logged but do not
// change the run's exit status, the local report is authoritative.
func uploadReport(ctx context.Context, log *logging.Logger, localPath, gcsURL string) {
	store, err := artifacts.New(ctx, credentialsFile, log)
	if err != nil {
		log.Error("failed to create artifact store", "error", err)
		return
	}
	defer store.Close()

	if err := store.Upload(ctx, localPath, gcsURL); err != nil {
		log.Error("failed to upload deployment report", "error", err)
	}
}
