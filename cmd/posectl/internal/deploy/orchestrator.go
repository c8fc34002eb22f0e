// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/posecoach/posectl/pkg/logging"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator drives one deployment run as a sequence of stages.
//
// # Description
//
// Execute dispatches to one stage sequence per strategy. Stages run
// strictly one at a time; there is no parallelism between stages or
// between health checks within a poll. A failing stage stops the
// sequence, optionally appending a terminal rollback stage. Collaborator
// errors are converted into Failed results at the stage boundary and
// never propagate out of Execute; only an unsupported strategy returns
// an error, before any stage has run.
//
// # Thread Safety
//
// An Orchestrator holds no mutable state across runs and is safe for
// concurrent Execute calls, though a single pipeline invocation only
// ever performs one.
//
// # Example
//
//	orch, err := deploy.New(deploy.Options{
//	    Rollout:     playClient,
//	    Metrics:     monitoringClient,
//	    History:     historyStore,
//	    Environment: "production",
//	    Config:      cfg,
//	})
//	results, err := orch.Execute(ctx, deploy.StrategyCanary, "1.4.2")
type Orchestrator struct {
	rollout RolloutClient
	metrics MetricSource
	history VersionHistory
	clock   Clock
	log     *logging.Logger
	cfg     Config

	environment string
}

// Options configures an Orchestrator.
type Options struct {
	// Rollout drives the app-store rollout. Required.
	Rollout RolloutClient

	// Metrics answers health-metric queries. Required.
	Metrics MetricSource

	// History resolves the rollback target version. Optional; without it
	// a rollback stage fails with an explanatory message instead of
	// guessing a version.
	History VersionHistory

	// Clock provides time and sleeps. Default: RealClock.
	Clock Clock

	// Logger receives structured run logs. Default: logging.Default().
	Logger *logging.Logger

	// Config is the deployment configuration; zero values are normalized
	// to the built-in defaults.
	Config Config

	// Environment names the target environment for logs and the report.
	Environment string
}

// New creates an Orchestrator from Options.
//
// # Outputs
//
//   - *Orchestrator: Ready-to-use orchestrator.
//   - error: Non-nil when Rollout or Metrics is missing.
func New(opts Options) (*Orchestrator, error) {
	if opts.Rollout == nil {
		return nil, fmt.Errorf("deploy: Options.Rollout is required")
	}
	if opts.Metrics == nil {
		return nil, fmt.Errorf("deploy: Options.Metrics is required")
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	opts.Config.Normalize()

	return &Orchestrator{
		rollout:     opts.Rollout,
		metrics:     opts.Metrics,
		history:     opts.History,
		clock:       opts.Clock,
		log:         opts.Logger,
		cfg:         opts.Config,
		environment: opts.Environment,
	}, nil
}

// Execute runs one deployment and returns the ordered stage results.
//
// # Description
//
// The returned sequence is append-only and complete: it reflects exactly
// the stages that ran, in order, including a terminal rollback stage
// when one was triggered. Expected failures (store errors, unhealthy
// metrics, verification mismatches) appear as Failed results rather
// than errors.
//
// # Inputs
//
//   - ctx: Cancels propagation waits and monitoring at the next poll
//     boundary; the aborted stage is recorded as Failed.
//   - strategy: One of the four supported strategies.
//   - version: The release version being deployed.
//
// # Outputs
//
//   - []StageResult: Ordered audit trail of the run. Never empty on a
//     nil error.
//   - error: ErrUnsupportedStrategy only; no stage has run in that case.
func (o *Orchestrator) Execute(ctx context.Context, strategy Strategy, version string) ([]StageResult, error) {
	o.log.Info("starting deployment",
		"strategy", string(strategy),
		"version", version,
		"environment", o.environment)

	switch strategy {
	case StrategyImmediate:
		return o.executeImmediate(ctx, version), nil
	case StrategyCanary:
		return o.executeCanary(ctx, version), nil
	case StrategyBlueGreen:
		return o.executeBlueGreen(ctx, version), nil
	case StrategyGradual:
		return o.executeGradual(ctx, version), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, strategy)
	}
}

// =============================================================================
// STRATEGY SEQUENCES
// =============================================================================

// executeImmediate rolls out to 100% in a single stage.
func (o *Orchestrator) executeImmediate(ctx context.Context, version string) []StageResult {
	return []StageResult{o.deployToPercentage(ctx, version, 100, "immediate")}
}

// executeCanary deploys to the canary percentage, monitors it, and on
// success proceeds to the full rollout. A monitoring failure appends a
// rollback stage and stops.
func (o *Orchestrator) executeCanary(ctx context.Context, version string) []StageResult {
	results := make([]StageResult, 0, 4)

	canary := o.deployToPercentage(ctx, version, o.cfg.CanaryPercentage, "canary")
	results = append(results, canary)
	if !canary.Succeeded() {
		o.log.Error("canary deployment failed", "error", canary.Error)
		return results
	}

	mon := o.monitor(ctx, version, o.cfg.CanaryPercentage, o.cfg.MonitoringDuration())
	results = append(results, mon)
	if !mon.Succeeded() {
		o.log.Error("canary monitoring failed, rolling back", "error", mon.Error)
		return append(results, o.rollback(ctx, o.cfg.CanaryPercentage))
	}

	o.log.Info("canary healthy, proceeding with full rollout")
	return append(results, o.deployToPercentage(ctx, version, 100, "full"))
}

// executeBlueGreen deploys to the internal (green) track, health checks
// it, and switches production traffic only if the checks pass. A failed
// switch appends a revert-to-blue stage; a failed health check stops
// without touching production at all.
func (o *Orchestrator) executeBlueGreen(ctx context.Context, version string) []StageResult {
	results := make([]StageResult, 0, 4)

	green := o.deployGreen(ctx, version)
	results = append(results, green)
	if !green.Succeeded() {
		o.log.Error("green deployment failed", "error", green.Error)
		return results
	}

	health := o.healthCheckGreen(ctx, version)
	results = append(results, health)
	if !health.Succeeded() {
		o.log.Error("green health check failed, keeping traffic on blue")
		return results
	}

	sw := o.switchTraffic(ctx, version)
	results = append(results, sw)
	if !sw.Succeeded() {
		o.log.Error("traffic switch failed, reverting to blue", "error", sw.Error)
		return append(results, o.rollbackToBlue(ctx))
	}
	return results
}

// executeGradual ramps through the configured stages in order, deploying
// and then monitoring each percentage. The first failure stops the ramp;
// a monitoring failure additionally appends a rollback stage.
func (o *Orchestrator) executeGradual(ctx context.Context, version string) []StageResult {
	results := make([]StageResult, 0, 2*len(o.cfg.Stages))

	for i, sc := range o.cfg.Stages {
		name := fmt.Sprintf("gradual_stage_%d", i+1)

		dep := o.deployToPercentage(ctx, version, sc.Percentage, name)
		results = append(results, dep)
		if !dep.Succeeded() {
			o.log.Error("gradual stage deployment failed", "stage", name, "error", dep.Error)
			break
		}

		mon := o.monitor(ctx, version, sc.Percentage, time.Duration(sc.DurationHours)*time.Hour)
		results = append(results, mon)
		if !mon.Succeeded() {
			o.log.Error("gradual stage monitoring failed, rolling back", "stage", name, "error", mon.Error)
			results = append(results, o.rollback(ctx, sc.Percentage))
			break
		}

		o.log.Info("gradual stage complete", "stage", name, "percentage", sc.Percentage)
	}
	return results
}

// =============================================================================
// STAGE ACTIONS
// =============================================================================

// deployToPercentage updates the store rollout, waits for propagation,
// and verifies the change. Blocking for the full propagation wait.
func (o *Orchestrator) deployToPercentage(ctx context.Context, version string, percentage int, stage string) StageResult {
	start := o.clock.Now()
	fail := func(msg string) StageResult {
		return StageResult{
			Stage:    stage,
			Status:   StatusFailed,
			Duration: o.clock.Now().Sub(start),
			Error:    msg,
		}
	}

	o.log.Info("updating rollout", "stage", stage, "version", version, "percentage", percentage)
	if err := o.rollout.UpdateRollout(ctx, version, percentage); err != nil {
		return fail(err.Error())
	}

	o.log.Info("waiting for rollout propagation", "wait", o.cfg.PropagationTime().String())
	if err := o.clock.Sleep(ctx, o.cfg.PropagationTime()); err != nil {
		return fail(fmt.Sprintf("propagation wait aborted: %v", err))
	}

	ok, err := o.rollout.VerifyDeployment(ctx, version, percentage)
	if err != nil {
		return fail(err.Error())
	}
	if !ok {
		return fail("deployment verification failed")
	}

	return StageResult{
		Stage:    stage,
		Status:   StatusSuccess,
		Duration: o.clock.Now().Sub(start),
	}
}

// monitor polls the configured health checks at a fixed interval until
// the window elapses (Success, carrying the last poll's metrics) or the
// rollback-trigger policy fires (Failed immediately). The loop aborts at
// any poll boundary when ctx is cancelled, so an hours-long gradual
// window never blocks past a detected failure.
func (o *Orchestrator) monitor(ctx context.Context, version string, percentage int, total time.Duration) StageResult {
	stage := fmt.Sprintf("monitoring_%dpct", percentage)
	start := o.clock.Now()
	deadline := start.Add(total)

	o.log.Info("monitoring deployment",
		"stage", stage,
		"duration", total.String(),
		"interval", o.cfg.CheckInterval().String())

	var last []HealthMetric
	for o.clock.Now().Before(deadline) {
		observed := o.evaluateHealthChecks(ctx, version)
		last = observed

		if unhealthy := unhealthyOf(observed); len(unhealthy) > 0 {
			names := metricNames(unhealthy)
			o.log.Warn("unhealthy metrics detected", "metrics", strings.Join(names, ","))

			if ShouldTriggerRollback(unhealthy, o.cfg) {
				return StageResult{
					Stage:    stage,
					Status:   StatusFailed,
					Metrics:  observed,
					Duration: o.clock.Now().Sub(start),
					Error:    fmt.Sprintf("rollback triggered by unhealthy metrics: %s", strings.Join(names, ", ")),
				}
			}
		}

		if err := o.clock.Sleep(ctx, o.cfg.CheckInterval()); err != nil {
			return StageResult{
				Stage:    stage,
				Status:   StatusFailed,
				Metrics:  observed,
				Duration: o.clock.Now().Sub(start),
				Error:    fmt.Sprintf("monitoring aborted: %v", err),
			}
		}
	}

	return StageResult{
		Stage:    stage,
		Status:   StatusSuccess,
		Metrics:  last,
		Duration: o.clock.Now().Sub(start),
	}
}

// deployGreen publishes the version to the internal track.
func (o *Orchestrator) deployGreen(ctx context.Context, version string) StageResult {
	start := o.clock.Now()
	o.log.Info("deploying to green environment", "version", version)

	if err := o.rollout.DeployToInternalTrack(ctx, version); err != nil {
		return StageResult{
			Stage:    "green_deployment",
			Status:   StatusFailed,
			Duration: o.clock.Now().Sub(start),
			Error:    err.Error(),
		}
	}
	return StageResult{
		Stage:    "green_deployment",
		Status:   StatusSuccess,
		Duration: o.clock.Now().Sub(start),
	}
}

// healthCheckGreen evaluates every configured check once against the
// green deployment. All checks must be healthy for the stage to pass.
func (o *Orchestrator) healthCheckGreen(ctx context.Context, version string) StageResult {
	start := o.clock.Now()
	o.log.Info("health checking green environment", "version", version)

	observed := o.evaluateHealthChecks(ctx, version)
	result := StageResult{
		Stage:    "green_health_check",
		Metrics:  observed,
		Duration: o.clock.Now().Sub(start),
	}

	if unhealthy := unhealthyOf(observed); len(unhealthy) > 0 {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("health checks failed: %s", strings.Join(metricNames(unhealthy), ", "))
		return result
	}
	result.Status = StatusSuccess
	return result
}

// switchTraffic promotes the internal-track version to production.
func (o *Orchestrator) switchTraffic(ctx context.Context, version string) StageResult {
	start := o.clock.Now()
	o.log.Info("switching traffic to green environment", "version", version)

	if err := o.rollout.PromoteToProductionTrack(ctx, version); err != nil {
		return StageResult{
			Stage:    "traffic_switch",
			Status:   StatusFailed,
			Duration: o.clock.Now().Sub(start),
			Error:    err.Error(),
		}
	}
	return StageResult{
		Stage:    "traffic_switch",
		Status:   StatusSuccess,
		Duration: o.clock.Now().Sub(start),
	}
}

// rollback restores the previous stable version at the given rollout
// percentage. It is always the terminal stage of its run.
func (o *Orchestrator) rollback(ctx context.Context, percentage int) StageResult {
	start := o.clock.Now()
	fail := func(msg string) StageResult {
		return StageResult{
			Stage:    "rollback",
			Status:   StatusFailed,
			Duration: o.clock.Now().Sub(start),
			Error:    msg,
		}
	}

	if o.history == nil {
		return fail("no deployment history available for rollback")
	}
	previous, err := o.history.LastStableVersion()
	if err != nil {
		return fail(fmt.Sprintf("cannot determine rollback target: %v", err))
	}

	o.log.Info("rolling back deployment", "target_version", previous, "percentage", percentage)
	if err := o.rollout.UpdateRollout(ctx, previous, percentage); err != nil {
		return fail(err.Error())
	}

	return StageResult{
		Stage:    "rollback",
		Status:   StatusRolledBack,
		Duration: o.clock.Now().Sub(start),
	}
}

// rollbackToBlue reverses a production traffic switch. Terminal stage.
func (o *Orchestrator) rollbackToBlue(ctx context.Context) StageResult {
	start := o.clock.Now()
	o.log.Info("reverting traffic to blue environment")

	if err := o.rollout.RevertTrafficSwitch(ctx); err != nil {
		return StageResult{
			Stage:    "blue_rollback",
			Status:   StatusFailed,
			Duration: o.clock.Now().Sub(start),
			Error:    err.Error(),
		}
	}
	return StageResult{
		Stage:    "blue_rollback",
		Status:   StatusRolledBack,
		Duration: o.clock.Now().Sub(start),
	}
}

func metricNames(metrics []HealthMetric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.Name
	}
	return names
}
