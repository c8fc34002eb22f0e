// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"context"
	"sync"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// RolloutClient drives the app-store side of a deployment.
//
// # Description
//
// Every method is one independent network request against the store
// backend; the orchestrator holds no connection state between calls.
// Errors returned here never escape Execute — they are converted into
// Failed stage results at the stage boundary.
//
// # Implementations
//
//   - playstore.Client: Google Play Developer API (production)
//   - MockRolloutClient: configurable in-memory fake (tests, dry runs)
type RolloutClient interface {
	// UpdateRollout sets the staged-rollout percentage for version.
	UpdateRollout(ctx context.Context, version string, percentage int) error

	// VerifyDeployment confirms a rollout change took effect. A false
	// return without an error means the store reported a different state
	// than requested.
	VerifyDeployment(ctx context.Context, version string, percentage int) (bool, error)

	// DeployToInternalTrack publishes version to the internal (green)
	// track for blue/green deployments.
	DeployToInternalTrack(ctx context.Context, version string) error

	// PromoteToProductionTrack switches production traffic to the
	// version currently on the internal track.
	PromoteToProductionTrack(ctx context.Context, version string) error

	// RevertTrafficSwitch undoes a production promotion, restoring the
	// previous (blue) release.
	RevertTrafficSwitch(ctx context.Context) error
}

// MetricSource answers health-metric queries for a deployed version.
//
// # Description
//
// QueryMetric reads an averaged time-series value over the backend's
// recent window (the production implementation averages the last ten
// minutes). An empty series averages to 0.0 with a nil error; a nil
// error with 0.0 is therefore a valid observation, while a non-nil
// error means the query itself failed and the caller falls back to the
// check's fail-open default.
type MetricSource interface {
	QueryMetric(ctx context.Context, metricType string, labels map[string]string) (float64, error)
}

// VersionHistory answers which version a rollback should restore.
//
// Implemented by history.Store over the local deployment-history
// database. A rollback stage fails cleanly when no stable version has
// ever been recorded.
type VersionHistory interface {
	LastStableVersion() (string, error)
}

// =============================================================================
// MOCKS
// =============================================================================

// MockRolloutClient is a configurable RolloutClient for tests and dry
// runs. Unset function fields succeed. All calls are recorded.
//
// # Example
//
//	mock := &MockRolloutClient{
//	    UpdateRolloutFunc: func(ctx context.Context, v string, pct int) error {
//	        return fmt.Errorf("store unavailable")
//	    },
//	}
type MockRolloutClient struct {
	UpdateRolloutFunc            func(ctx context.Context, version string, percentage int) error
	VerifyDeploymentFunc         func(ctx context.Context, version string, percentage int) (bool, error)
	DeployToInternalTrackFunc    func(ctx context.Context, version string) error
	PromoteToProductionTrackFunc func(ctx context.Context, version string) error
	RevertTrafficSwitchFunc      func(ctx context.Context) error

	UpdateRolloutCalls            []RolloutCall
	VerifyDeploymentCalls         []RolloutCall
	DeployToInternalTrackCalls    []string
	PromoteToProductionTrackCalls []string
	RevertTrafficSwitchCalls      int
	mu                            sync.Mutex
}

// RolloutCall records one percentage-changing call.
type RolloutCall struct {
	Version    string
	Percentage int
}

func (m *MockRolloutClient) UpdateRollout(ctx context.Context, version string, percentage int) error {
	m.mu.Lock()
	m.UpdateRolloutCalls = append(m.UpdateRolloutCalls, RolloutCall{version, percentage})
	m.mu.Unlock()
	if m.UpdateRolloutFunc != nil {
		return m.UpdateRolloutFunc(ctx, version, percentage)
	}
	return nil
}

func (m *MockRolloutClient) VerifyDeployment(ctx context.Context, version string, percentage int) (bool, error) {
	m.mu.Lock()
	m.VerifyDeploymentCalls = append(m.VerifyDeploymentCalls, RolloutCall{version, percentage})
	m.mu.Unlock()
	if m.VerifyDeploymentFunc != nil {
		return m.VerifyDeploymentFunc(ctx, version, percentage)
	}
	return true, nil
}

func (m *MockRolloutClient) DeployToInternalTrack(ctx context.Context, version string) error {
	m.mu.Lock()
	m.DeployToInternalTrackCalls = append(m.DeployToInternalTrackCalls, version)
	m.mu.Unlock()
	if m.DeployToInternalTrackFunc != nil {
		return m.DeployToInternalTrackFunc(ctx, version)
	}
	return nil
}

func (m *MockRolloutClient) PromoteToProductionTrack(ctx context.Context, version string) error {
	m.mu.Lock()
	m.PromoteToProductionTrackCalls = append(m.PromoteToProductionTrackCalls, version)
	m.mu.Unlock()
	if m.PromoteToProductionTrackFunc != nil {
		return m.PromoteToProductionTrackFunc(ctx, version)
	}
	return nil
}

func (m *MockRolloutClient) RevertTrafficSwitch(ctx context.Context) error {
	m.mu.Lock()
	m.RevertTrafficSwitchCalls++
	m.mu.Unlock()
	if m.RevertTrafficSwitchFunc != nil {
		return m.RevertTrafficSwitchFunc(ctx)
	}
	return nil
}

// MockMetricSource is a configurable MetricSource.
//
// Values maps a metric type to the value returned for it; unknown types
// return 0.0. QueryMetricFunc, when set, takes precedence over Values.
type MockMetricSource struct {
	QueryMetricFunc func(ctx context.Context, metricType string, labels map[string]string) (float64, error)
	Values          map[string]float64

	Queries []string
	mu      sync.Mutex
}

func (m *MockMetricSource) QueryMetric(ctx context.Context, metricType string, labels map[string]string) (float64, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, metricType)
	m.mu.Unlock()
	if m.QueryMetricFunc != nil {
		return m.QueryMetricFunc(ctx, metricType, labels)
	}
	return m.Values[metricType], nil
}

// MockVersionHistory is a configurable VersionHistory.
type MockVersionHistory struct {
	Version string
	Err     error
}

func (m *MockVersionHistory) LastStableVersion() (string, error) {
	return m.Version, m.Err
}

// Compile-time interface satisfaction checks
var (
	_ RolloutClient  = (*MockRolloutClient)(nil)
	_ MetricSource   = (*MockMetricSource)(nil)
	_ VersionHistory = (*MockVersionHistory)(nil)
)
