// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"

	"github.com/posecoach/posectl/pkg/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the command logger from the global flags.
func newLogger(service string) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		LogDir:  logDir,
		Service: service,
	})
}

// defaultHistoryDir resolves ~/.posectl/history, falling back to a
// relative directory when the home directory is unknown.
func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".posectl/history"
	}
	return filepath.Join(home, ".posectl", "history")
}

// defaultJacocoReports lists the per-module Jacoco reports the Android
// build produces.
func defaultJacocoReports() []string {
	return []string{
		"app/build/reports/jacoco/test/jacocoTestReport.xml",
		"core-pose/build/reports/jacoco/test/jacocoTestReport.xml",
		"core-geom/build/reports/jacoco/test/jacocoTestReport.xml",
		"suggestions-api/build/reports/jacoco/test/jacocoTestReport.xml",
	}
}
