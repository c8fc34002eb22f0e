// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quality

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// BUILD METRICS
// =============================================================================

// BuildMetrics are gate inputs read from local build outputs. Zero
// values mean the artifact was not available, which skips the
// corresponding gates.
type BuildMetrics struct {
	APKSizeMB   float64
	MethodCount int
}

// CollectBuildMetrics reads the release APK's size and, when a dexcount
// report is present, the method reference count.
//
// # Inputs
//
//   - apkPath: Release APK path; empty or missing skips the size gate.
//   - dexcountPath: Path to a dexcount summary ("methods: N" lines);
//     empty or missing skips the method-count gate.
func CollectBuildMetrics(apkPath, dexcountPath string) BuildMetrics {
	var m BuildMetrics

	if apkPath != "" {
		if info, err := os.Stat(apkPath); err == nil {
			m.APKSizeMB = float64(info.Size()) / (1024 * 1024)
		}
	}
	if dexcountPath != "" {
		if count, err := parseDexcount(dexcountPath); err == nil {
			m.MethodCount = count
		}
	}
	return m
}

// parseDexcount extracts the method count from a dexcount gradle plugin
// summary file.
func parseDexcount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "methods:") {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, "methods:"))
		count, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("malformed dexcount summary %s: %w", path, err)
		}
		return count, nil
	}
	return 0, fmt.Errorf("no method count in dexcount summary %s", path)
}

// =============================================================================
// JACOCO COVERAGE
// =============================================================================

// jacocoReport mirrors the Jacoco XML counters we consume.
type jacocoReport struct {
	Counters []jacocoCounter `xml:"counter"`
}

type jacocoCounter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

// CoverageFromJacoco aggregates line coverage across Jacoco XML
// reports. Missing report files are skipped; modules without tests
// simply contribute nothing.
//
// # Outputs
//
//   - float64: Covered-line percentage across all parsed reports.
//   - error: Non-nil when a present report cannot be parsed or no
//     report contributed any lines.
func CoverageFromJacoco(paths []string) (float64, error) {
	var total, covered int

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("failed to read coverage report %s: %w", path, err)
		}

		var report jacocoReport
		if err := xml.Unmarshal(data, &report); err != nil {
			return 0, fmt.Errorf("failed to parse coverage report %s: %w", path, err)
		}
		for _, c := range report.Counters {
			if c.Type != "LINE" {
				continue
			}
			total += c.Covered + c.Missed
			covered += c.Covered
		}
	}

	if total == 0 {
		return 0, fmt.Errorf("no coverage data found")
	}
	return float64(covered) / float64(total) * 100, nil
}
