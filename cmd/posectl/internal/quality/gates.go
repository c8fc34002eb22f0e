// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quality

import (
	"fmt"
)

// =============================================================================
// GATE DEFINITIONS
// =============================================================================

// Gate is one evaluated quality gate.
type Gate struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Unit      string  `json:"unit"`
	Passed    bool    `json:"passed"`
	Critical  bool    `json:"critical"`
}

// Result is the outcome of a full gate evaluation. OverallPassed tracks
// critical gates only; non-critical breaches surface as warnings.
type Result struct {
	Gates            []Gate   `json:"gates"`
	OverallPassed    bool     `json:"overall_passed"`
	CriticalFailures []string `json:"critical_failures"`
	Warnings         []string `json:"warnings"`
}

// Thresholds configures the gate boundaries.
type Thresholds struct {
	// Coverage is the minimum line coverage percentage. Default: 85.
	Coverage float64

	// Complexity is the maximum average complexity per 1000 lines.
	// Default: 10.
	Complexity float64

	// Duplication is the maximum duplicated-lines percentage. Default: 5.
	Duplication float64

	// SecurityRating is the worst acceptable security rating letter.
	// Default: "A".
	SecurityRating string

	// MaintainabilityRating is the worst acceptable maintainability
	// rating letter. Default: "A".
	MaintainabilityRating string
}

// Normalize fills zero-valued fields with their defaults.
func (t *Thresholds) Normalize() {
	if t.Coverage == 0 {
		t.Coverage = 85.0
	}
	if t.Complexity == 0 {
		t.Complexity = 10.0
	}
	if t.Duplication == 0 {
		t.Duplication = 5.0
	}
	if t.SecurityRating == "" {
		t.SecurityRating = "A"
	}
	if t.MaintainabilityRating == "" {
		t.MaintainabilityRating = "A"
	}
}

const (
	// apkSizeLimitMB is the release APK size gate.
	apkSizeLimitMB = 100.0

	// dexMethodLimit is the single-DEX method reference ceiling.
	dexMethodLimit = 65000
)

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate runs every gate against the collected measures.
//
// # Description
//
// Critical gates: coverage, security rating, vulnerabilities, and
// method count. Build gates (APK size, method count) only run when the
// corresponding build metric was collected, so a library-only pipeline
// is not failed for lacking an APK.
//
// # Inputs
//
//   - m: SonarCloud (or locally derived) measures.
//   - build: APK-derived metrics; zero-valued fields skip their gates.
//   - th: Gate thresholds; zero values are normalized to the defaults.
func Evaluate(m Measures, build BuildMetrics, th Thresholds) Result {
	th.Normalize()

	var result Result
	addGate := func(g Gate, failure string) {
		result.Gates = append(result.Gates, g)
		if g.Passed {
			return
		}
		if g.Critical {
			result.CriticalFailures = append(result.CriticalFailures, failure)
		} else {
			result.Warnings = append(result.Warnings, failure)
		}
	}

	addGate(Gate{
		Name:      "code_coverage",
		Value:     m.Coverage,
		Threshold: th.Coverage,
		Unit:      "%",
		Passed:    m.Coverage >= th.Coverage,
		Critical:  true,
	}, fmt.Sprintf("code coverage %.1f%% below threshold %.1f%%", m.Coverage, th.Coverage))

	if m.Complexity > 0 {
		lines := m.LinesOfCode
		if lines <= 0 {
			lines = 1000
		}
		avg := m.Complexity / lines * 1000
		addGate(Gate{
			Name:      "code_complexity",
			Value:     avg,
			Threshold: th.Complexity,
			Unit:      "/1kloc",
			Passed:    avg <= th.Complexity,
		}, fmt.Sprintf("average complexity %.1f exceeds threshold %.1f", avg, th.Complexity))
	}

	addGate(Gate{
		Name:      "code_duplication",
		Value:     m.DuplicatedLinesDensity,
		Threshold: th.Duplication,
		Unit:      "%",
		Passed:    m.DuplicatedLinesDensity <= th.Duplication,
	}, fmt.Sprintf("code duplication %.1f%% exceeds threshold %.1f%%",
		m.DuplicatedLinesDensity, th.Duplication))

	secThreshold := ratingValues[th.SecurityRating]
	addGate(Gate{
		Name:      "security_rating",
		Value:     m.SecurityRating,
		Threshold: secThreshold,
		Unit:      "rating",
		Passed:    m.SecurityRating <= secThreshold,
		Critical:  true,
	}, fmt.Sprintf("security rating failed: required %s, got %s",
		th.SecurityRating, RatingLetter(m.SecurityRating)))

	maintThreshold := ratingValues[th.MaintainabilityRating]
	addGate(Gate{
		Name:      "maintainability_rating",
		Value:     m.MaintainabilityRating,
		Threshold: maintThreshold,
		Unit:      "rating",
		Passed:    m.MaintainabilityRating <= maintThreshold,
	}, fmt.Sprintf("maintainability rating failed: required %s, got %s",
		th.MaintainabilityRating, RatingLetter(m.MaintainabilityRating)))

	addGate(Gate{
		Name:      "security_vulnerabilities",
		Value:     m.Vulnerabilities,
		Threshold: 0,
		Unit:      "count",
		Passed:    m.Vulnerabilities == 0,
		Critical:  true,
	}, fmt.Sprintf("security vulnerabilities found: %.0f", m.Vulnerabilities))

	if build.APKSizeMB > 0 {
		addGate(Gate{
			Name:      "apk_size",
			Value:     build.APKSizeMB,
			Threshold: apkSizeLimitMB,
			Unit:      "MB",
			Passed:    build.APKSizeMB <= apkSizeLimitMB,
		}, fmt.Sprintf("APK size %.1fMB exceeds %.0fMB threshold", build.APKSizeMB, apkSizeLimitMB))
	}

	if build.MethodCount > 0 {
		addGate(Gate{
			Name:      "method_count",
			Value:     float64(build.MethodCount),
			Threshold: dexMethodLimit,
			Unit:      "methods",
			Passed:    build.MethodCount <= dexMethodLimit,
			Critical:  true,
		}, fmt.Sprintf("method count %d exceeds DEX limit of %d", build.MethodCount, dexMethodLimit))
	}

	result.OverallPassed = len(result.CriticalFailures) == 0
	return result
}
