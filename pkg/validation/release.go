// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided release identifiers
// that end up in Play Store API calls and Cloud Monitoring filter
// expressions. Using these validators prevents filter injection and
// keeps malformed identifiers out of the release track.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// versionPattern matches release version names.
// Allows: digits and dots (2.3.1), plus an optional suffix for
// pre-release builds (2.4.0-rc.1, 2.4.0-beta2).
// Max length: 32 characters.
var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+){1,3}(-[A-Za-z0-9.]{1,12})?$`)

// packagePattern matches Android application ids: dot-separated
// segments that each start with a letter.
var packagePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)+$`)

// ValidateVersion validates a release version name before it is used
// as a Play Store release name or interpolated into a Cloud Monitoring
// metric filter.
//
// Valid versions:
//   - 2-4 dot-separated numeric components (2.3, 2.3.1, 2.3.1.450)
//   - Optional pre-release suffix after a hyphen (2.4.0-rc.1)
//
// Returns an error if the version is invalid.
//
// Example:
//
//	if err := validation.ValidateVersion(version); err != nil {
//	    return fmt.Errorf("invalid version: %w", err)
//	}
//	// Safe to use in a monitoring filter
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if len(version) > 32 {
		return fmt.Errorf("version too long: %d characters (max 32)", len(version))
	}
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("invalid version format: %q (expected dot-separated numbers with optional -suffix)", version)
	}
	return nil
}

// ValidatePackageName validates an Android application id before it is
// used in Play Store edit requests.
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if !packagePattern.MatchString(name) {
		return fmt.Errorf("invalid package name: %q", name)
	}
	return nil
}

// SanitizeVersion normalizes and validates a version name.
// Returns the trimmed version if valid, or an error if invalid.
//
// Use this when the version comes straight from CI variables, which
// often carry stray whitespace or a leading "v":
//
//	safeVersion, err := validation.SanitizeVersion(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeVersion(version string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if err := ValidateVersion(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
