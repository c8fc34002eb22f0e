// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quality

import (
	"testing"
)

func passingMeasures() Measures {
	return Measures{
		Coverage:               92.5,
		Complexity:             400, // 8 per 1kloc at 50k lines
		DuplicatedLinesDensity: 2.1,
		SecurityRating:         1,
		MaintainabilityRating:  1,
		Vulnerabilities:        0,
		LinesOfCode:            50000,
	}
}

func gateByName(t *testing.T, result Result, name string) Gate {
	t.Helper()
	for _, g := range result.Gates {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("gate %q not found in %+v", name, result.Gates)
	return Gate{}
}

func TestEvaluate_AllPassing(t *testing.T) {
	result := Evaluate(passingMeasures(), BuildMetrics{APKSizeMB: 48.2, MethodCount: 41000}, Thresholds{})

	if !result.OverallPassed {
		t.Fatalf("OverallPassed = false: %+v", result.CriticalFailures)
	}
	if len(result.CriticalFailures) != 0 || len(result.Warnings) != 0 {
		t.Errorf("failures = %v, warnings = %v, want none",
			result.CriticalFailures, result.Warnings)
	}
	if len(result.Gates) != 8 {
		t.Errorf("gates = %d, want 8", len(result.Gates))
	}
}

func TestEvaluate_LowCoverageIsCritical(t *testing.T) {
	m := passingMeasures()
	m.Coverage = 70.0

	result := Evaluate(m, BuildMetrics{}, Thresholds{})

	if result.OverallPassed {
		t.Error("OverallPassed = true with coverage below threshold")
	}
	gate := gateByName(t, result, "code_coverage")
	if gate.Passed || !gate.Critical {
		t.Errorf("coverage gate = %+v, want failed critical", gate)
	}
	if len(result.CriticalFailures) != 1 {
		t.Errorf("critical failures = %v, want one", result.CriticalFailures)
	}
}

func TestEvaluate_VulnerabilitiesAreCritical(t *testing.T) {
	m := passingMeasures()
	m.Vulnerabilities = 3

	result := Evaluate(m, BuildMetrics{}, Thresholds{})

	if result.OverallPassed {
		t.Error("OverallPassed = true with open vulnerabilities")
	}
	gate := gateByName(t, result, "security_vulnerabilities")
	if gate.Passed {
		t.Errorf("vulnerabilities gate = %+v, want failed", gate)
	}
}

func TestEvaluate_DuplicationOnlyWarns(t *testing.T) {
	m := passingMeasures()
	m.DuplicatedLinesDensity = 12.0

	result := Evaluate(m, BuildMetrics{}, Thresholds{})

	// Duplication is not a critical gate: the run still passes.
	if !result.OverallPassed {
		t.Errorf("OverallPassed = false for a non-critical breach: %v",
			result.CriticalFailures)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", result.Warnings)
	}
}

func TestEvaluate_ComplexityIsPerThousandLines(t *testing.T) {
	m := passingMeasures()
	m.Complexity = 600
	m.LinesOfCode = 50000 // 12 per 1kloc, above the default 10

	result := Evaluate(m, BuildMetrics{}, Thresholds{})

	gate := gateByName(t, result, "code_complexity")
	if gate.Value != 12 {
		t.Errorf("complexity gate value = %v, want 12", gate.Value)
	}
	if gate.Passed {
		t.Error("complexity gate passed at 12/1kloc against threshold 10")
	}
	if !result.OverallPassed {
		t.Error("complexity breach must not be critical")
	}
}

func TestEvaluate_SecurityRatingLetterThreshold(t *testing.T) {
	m := passingMeasures()
	m.SecurityRating = 2 // B

	strict := Evaluate(m, BuildMetrics{}, Thresholds{})
	if strict.OverallPassed {
		t.Error("B security rating passed against required A")
	}

	relaxed := Evaluate(m, BuildMetrics{}, Thresholds{SecurityRating: "B"})
	if !relaxed.OverallPassed {
		t.Errorf("B security rating failed against required B: %v",
			relaxed.CriticalFailures)
	}
}

func TestEvaluate_MethodCountOverDexLimit(t *testing.T) {
	result := Evaluate(passingMeasures(), BuildMetrics{MethodCount: 70000}, Thresholds{})

	if result.OverallPassed {
		t.Error("OverallPassed = true above the DEX method limit")
	}
	gate := gateByName(t, result, "method_count")
	if gate.Passed || !gate.Critical {
		t.Errorf("method count gate = %+v, want failed critical", gate)
	}
}

func TestEvaluate_OversizedAPKOnlyWarns(t *testing.T) {
	result := Evaluate(passingMeasures(), BuildMetrics{APKSizeMB: 130}, Thresholds{})

	if !result.OverallPassed {
		t.Errorf("OverallPassed = false for oversized APK: %v", result.CriticalFailures)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", result.Warnings)
	}
}

func TestEvaluate_MissingBuildMetricsSkipGates(t *testing.T) {
	result := Evaluate(passingMeasures(), BuildMetrics{}, Thresholds{})

	for _, g := range result.Gates {
		if g.Name == "apk_size" || g.Name == "method_count" {
			t.Errorf("gate %q evaluated without build metrics", g.Name)
		}
	}
}

func TestEvaluate_CustomCoverageThreshold(t *testing.T) {
	m := passingMeasures()
	m.Coverage = 75

	result := Evaluate(m, BuildMetrics{}, Thresholds{Coverage: 70})
	if !result.OverallPassed {
		t.Errorf("coverage 75 failed against custom threshold 70: %v",
			result.CriticalFailures)
	}
}

func TestRatingLetter(t *testing.T) {
	tests := []struct {
		rating float64
		want   string
	}{
		{1, "A"}, {2, "B"}, {3, "C"}, {4, "D"}, {5, "E"},
		{0, "E"}, {9, "E"},
	}
	for _, tt := range tests {
		if got := RatingLetter(tt.rating); got != tt.want {
			t.Errorf("RatingLetter(%v) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}
