// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/posecoach/posectl/cmd/posectl/internal/history"
)

// runHistory prints recorded deployment runs, newest first.
func runHistory(cmd *cobra.Command, args []string) {
	log := newLogger("history")
	defer log.Close()

	store, err := history.Open(historyDir, log)
	if err != nil {
		log.Error("failed to open deployment history", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		log.Error("failed to list deployment runs", "error", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No deployment runs recorded.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tVERSION\tSTRATEGY\tENVIRONMENT\tRESULT")
	for _, r := range records {
		result := "success"
		if !r.Success {
			result = "FAILED"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Version, r.Strategy, r.Environment, result)
	}
	w.Flush()
}
