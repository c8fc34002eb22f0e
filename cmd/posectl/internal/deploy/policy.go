// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

// criticalMetrics are the checks whose individual values can trigger a
// rollback on their own. Threshold overrides in rollback_triggers are
// only consulted for these two.
var criticalMetrics = map[string]bool{
	"crash_rate": true,
	"error_rate": true,
}

// ShouldTriggerRollback decides whether one poll's unhealthy metrics
// warrant aborting the deployment.
//
// # Description
//
// Evaluated after every monitoring poll. Rollback triggers when either:
//
//  1. A critical metric (crash_rate, error_rate) exceeds its rollback
//     threshold — "<metric>_threshold" from rollback_triggers, default
//     5.0. Note this is a second, looser bound than the metric's
//     healthiness threshold: a crash rate of 3% is unhealthy but not
//     yet rollback-worthy.
//  2. The number of unhealthy metrics in the poll reaches
//     max_unhealthy_metrics (default 3).
//
// Thresholds configured for metrics outside the critical set are
// ignored; a slow response_time alone never forces a rollback no matter
// what rollback_triggers says about it.
//
// # Inputs
//
//   - unhealthy: The unhealthy observations of a single poll.
//   - cfg: Deployment configuration carrying rollback_triggers.
//
// # Outputs
//
//   - bool: True when the deployment must be rolled back.
//
// Pure function: no side effects, no collaborator calls.
func ShouldTriggerRollback(unhealthy []HealthMetric, cfg Config) bool {
	for _, m := range unhealthy {
		if !criticalMetrics[m.Name] {
			continue
		}
		if m.Value > cfg.rollbackThreshold(m.Name) {
			return true
		}
	}
	return len(unhealthy) >= cfg.maxUnhealthyMetrics()
}
