// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"context"
	"sort"
)

// =============================================================================
// HEALTH CHECK TABLE
// =============================================================================

// CheckSpec defines one named health check: the backend metric it reads,
// the healthiness threshold, and the comparison direction.
type CheckSpec struct {
	// Name is the check identifier used in config and reports.
	Name string

	// MetricType is the fully qualified monitoring metric to query.
	MetricType string

	// Threshold is the healthiness boundary.
	Threshold float64

	// Comparison is the direction the value is compared to Threshold.
	Comparison Comparison

	// Fallback is the value reported when the metric query fails. It is
	// always on the healthy side of Threshold, so a broken monitoring
	// backend never fails a deployment by itself.
	Fallback float64
}

const metricPrefix = "custom.googleapis.com/pose_coach/"

var checkSpecs = map[string]CheckSpec{
	"crash_rate": {
		Name:       "crash_rate",
		MetricType: metricPrefix + "crash_rate",
		Threshold:  1.0,
		Comparison: ComparisonLessThan,
		Fallback:   0,
	},
	"error_rate": {
		Name:       "error_rate",
		MetricType: metricPrefix + "error_rate",
		Threshold:  2.0,
		Comparison: ComparisonLessThan,
		Fallback:   0,
	},
	"response_time": {
		Name:       "response_time",
		MetricType: metricPrefix + "api_response_time",
		Threshold:  500.0,
		Comparison: ComparisonLessThan,
		Fallback:   0,
	},
	"user_satisfaction": {
		Name:       "user_satisfaction",
		MetricType: metricPrefix + "user_satisfaction",
		Threshold:  4.0,
		Comparison: ComparisonGreaterThan,
		Fallback:   4.5,
	},
	"memory_usage": {
		Name:       "memory_usage",
		MetricType: metricPrefix + "memory_usage",
		Threshold:  512.0,
		Comparison: ComparisonLessThan,
		Fallback:   0,
	},
	"cpu_usage": {
		Name:       "cpu_usage",
		MetricType: metricPrefix + "cpu_usage",
		Threshold:  70.0,
		Comparison: ComparisonLessThan,
		Fallback:   0,
	},
}

// KnownChecks returns the names of all built-in health checks in a
// stable order.
func KnownChecks() []string {
	names := make([]string, 0, len(checkSpecs))
	for name := range checkSpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthyMetricValues maps every built-in check's metric type to a
// value on the healthy side of its threshold. Dry runs feed this to a
// MockMetricSource so a simulated deployment walks the success path.
func HealthyMetricValues() map[string]float64 {
	values := make(map[string]float64, len(checkSpecs))
	for _, spec := range checkSpecs {
		values[spec.MetricType] = spec.Fallback
	}
	return values
}

// =============================================================================
// EVALUATION
// =============================================================================

// Classify derives the healthiness of a value against a spec.
func (s CheckSpec) Classify(value float64) HealthMetric {
	healthy := false
	switch s.Comparison {
	case ComparisonGreaterThan:
		healthy = value >= s.Threshold
	default:
		healthy = value < s.Threshold
	}
	return HealthMetric{
		Name:       s.Name,
		Value:      value,
		Threshold:  s.Threshold,
		Comparison: s.Comparison,
		Healthy:    healthy,
	}
}

// runHealthCheck evaluates one named check for a version.
//
// Unknown check names yield a neutral healthy metric instead of an
// error: a typo in the health_checks config list must never trigger a
// false rollback. Query failures degrade to the check's healthy
// fallback value for the same reason.
func (o *Orchestrator) runHealthCheck(ctx context.Context, name, version string) HealthMetric {
	spec, ok := checkSpecs[name]
	if !ok {
		o.log.Warn("unknown health check, treating as healthy", "check", name)
		return HealthMetric{Name: name, Comparison: ComparisonLessThan, Healthy: true}
	}

	value, err := o.metrics.QueryMetric(ctx, spec.MetricType, map[string]string{"version": version})
	if err != nil {
		o.log.Error("health check query failed, using fallback",
			"check", name, "error", err)
		return spec.Classify(spec.Fallback)
	}
	return spec.Classify(value)
}

// evaluateHealthChecks runs every configured check in order and returns
// the observations of one poll.
func (o *Orchestrator) evaluateHealthChecks(ctx context.Context, version string) []HealthMetric {
	metrics := make([]HealthMetric, 0, len(o.cfg.HealthChecks))
	for _, name := range o.cfg.HealthChecks {
		metrics = append(metrics, o.runHealthCheck(ctx, name, version))
	}
	return metrics
}

// unhealthyOf filters one poll's observations down to the failing ones.
func unhealthyOf(metrics []HealthMetric) []HealthMetric {
	var unhealthy []HealthMetric
	for _, m := range metrics {
		if !m.Healthy {
			unhealthy = append(unhealthy, m)
		}
	}
	return unhealthy
}
