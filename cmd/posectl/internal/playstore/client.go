// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package playstore implements the rollout client against the Google
// Play Developer API.
//
// Every operation runs inside its own Play edit: insert an edit, apply
// the track change, commit. Reads use a throwaway edit that is deleted
// instead of committed. The package holds no state about the app beyond
// the blue release captured during a traffic switch, which is what a
// revert restores.
package playstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"github.com/posecoach/posectl/pkg/logging"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config configures the Play client.
type Config struct {
	// PackageName is the Android application id (e.g. "app.posecoach.android").
	PackageName string

	// Track is the staged-rollout track. Default: "production".
	Track string

	// InternalTrack is the green track for blue/green runs. Default: "internal".
	InternalTrack string

	// CredentialsFile is a service-account key path. Empty uses
	// application default credentials.
	CredentialsFile string
}

// Normalize fills zero-valued fields with their defaults.
func (c *Config) Normalize() {
	if c.Track == "" {
		c.Track = "production"
	}
	if c.InternalTrack == "" {
		c.InternalTrack = "internal"
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client drives staged rollouts through the Play Developer API.
//
// # Thread Safety
//
// Safe for concurrent use; the captured blue release is guarded by a
// mutex. A deployment run only ever issues sequential calls.
type Client struct {
	svc *androidpublisher.Service
	cfg Config
	log *logging.Logger

	mu   sync.Mutex
	blue *androidpublisher.TrackRelease
}

// New creates a Play client.
//
// # Inputs
//
//   - ctx: Governs credential exchange during service construction.
//   - cfg: Client configuration; PackageName is required.
//   - log: Structured logger. Nil uses the package default.
//
// # Outputs
//
//   - *Client: Ready-to-use client.
//   - error: Non-nil for a missing package name, an unreadable
//     credentials file, or a failed service handshake.
func New(ctx context.Context, cfg Config, log *logging.Logger) (*Client, error) {
	if cfg.PackageName == "" {
		return nil, fmt.Errorf("playstore: Config.PackageName is required")
	}
	cfg.Normalize()
	if log == nil {
		log = logging.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create androidpublisher service: %w", err)
	}

	return &Client{svc: svc, cfg: cfg, log: log}, nil
}

// UpdateRollout sets the staged-rollout fraction for version on the
// configured track. 100% completes the release.
func (c *Client) UpdateRollout(ctx context.Context, version string, percentage int) error {
	release := &androidpublisher.TrackRelease{
		Name:   version,
		Status: releaseStatus(percentage),
	}
	if f := userFraction(percentage); f > 0 {
		release.UserFraction = f
	}

	return c.withEdit(ctx, func(editID string) error {
		track := &androidpublisher.Track{
			Track:    c.cfg.Track,
			Releases: []*androidpublisher.TrackRelease{release},
		}
		if _, err := c.svc.Edits.Tracks.Update(c.cfg.PackageName, editID, c.cfg.Track, track).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to update track %s: %w", c.cfg.Track, err)
		}
		c.log.Info("track updated",
			"track", c.cfg.Track, "version", version, "percentage", percentage)
		return nil
	})
}

// VerifyDeployment confirms the configured track currently serves
// version at the requested percentage.
func (c *Client) VerifyDeployment(ctx context.Context, version string, percentage int) (bool, error) {
	track, err := c.readTrack(ctx, c.cfg.Track)
	if err != nil {
		return false, err
	}

	want := releaseStatus(percentage)
	for _, r := range track.Releases {
		if r.Name != version || r.Status != want {
			continue
		}
		if want == "completed" {
			return true, nil
		}
		return r.UserFraction == userFraction(percentage), nil
	}
	return false, nil
}

// DeployToInternalTrack publishes version to the internal (green) track
// as a completed release.
func (c *Client) DeployToInternalTrack(ctx context.Context, version string) error {
	return c.withEdit(ctx, func(editID string) error {
		track := &androidpublisher.Track{
			Track: c.cfg.InternalTrack,
			Releases: []*androidpublisher.TrackRelease{
				{Name: version, Status: "completed"},
			},
		}
		if _, err := c.svc.Edits.Tracks.Update(c.cfg.PackageName, editID, c.cfg.InternalTrack, track).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to update internal track: %w", err)
		}
		c.log.Info("deployed to internal track", "version", version)
		return nil
	})
}

// PromoteToProductionTrack switches production to version, capturing
// the displaced (blue) release so a revert can restore it.
func (c *Client) PromoteToProductionTrack(ctx context.Context, version string) error {
	current, err := c.readTrack(ctx, c.cfg.Track)
	if err != nil {
		return err
	}
	var blue *androidpublisher.TrackRelease
	for _, r := range current.Releases {
		if r.Status == "completed" {
			blue = r
			break
		}
	}

	err = c.withEdit(ctx, func(editID string) error {
		track := &androidpublisher.Track{
			Track: c.cfg.Track,
			Releases: []*androidpublisher.TrackRelease{
				{Name: version, Status: "completed"},
			},
		}
		if _, err := c.svc.Edits.Tracks.Update(c.cfg.PackageName, editID, c.cfg.Track, track).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to promote %s to %s: %w", version, c.cfg.Track, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.blue = blue
	c.mu.Unlock()
	c.log.Info("traffic switched", "version", version, "track", c.cfg.Track)
	return nil
}

// RevertTrafficSwitch restores the release that was live before the
// last PromoteToProductionTrack on this client.
func (c *Client) RevertTrafficSwitch(ctx context.Context) error {
	c.mu.Lock()
	blue := c.blue
	c.mu.Unlock()
	if blue == nil {
		return fmt.Errorf("no traffic switch to revert")
	}

	err := c.withEdit(ctx, func(editID string) error {
		track := &androidpublisher.Track{
			Track:    c.cfg.Track,
			Releases: []*androidpublisher.TrackRelease{blue},
		}
		if _, err := c.svc.Edits.Tracks.Update(c.cfg.PackageName, editID, c.cfg.Track, track).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to revert traffic switch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.log.Info("traffic reverted", "version", blue.Name)
	return nil
}

// =============================================================================
// EDIT PLUMBING
// =============================================================================

// withEdit runs fn inside a fresh Play edit and commits it. The edit is
// abandoned (left uncommitted, expiring server-side) if fn fails.
func (c *Client) withEdit(ctx context.Context, fn func(editID string) error) error {
	edit, err := c.svc.Edits.Insert(c.cfg.PackageName, &androidpublisher.AppEdit{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to open play edit: %w", err)
	}

	if err := fn(edit.Id); err != nil {
		return err
	}

	if _, err := c.svc.Edits.Commit(c.cfg.PackageName, edit.Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to commit play edit: %w", err)
	}
	return nil
}

// readTrack fetches a track's current state via a throwaway edit.
func (c *Client) readTrack(ctx context.Context, name string) (*androidpublisher.Track, error) {
	edit, err := c.svc.Edits.Insert(c.cfg.PackageName, &androidpublisher.AppEdit{}).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open play edit: %w", err)
	}
	defer func() {
		if err := c.svc.Edits.Delete(c.cfg.PackageName, edit.Id).Context(ctx).Do(); err != nil {
			c.log.Warn("failed to discard read-only play edit", "error", err)
		}
	}()

	track, err := c.svc.Edits.Tracks.Get(c.cfg.PackageName, edit.Id, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read track %s: %w", name, err)
	}
	return track, nil
}

// releaseStatus maps a rollout percentage to the Play release status.
func releaseStatus(percentage int) string {
	if percentage >= 100 {
		return "completed"
	}
	return "inProgress"
}

// userFraction converts a percentage to the Play user fraction. Zero
// for completed releases, which must not carry a fraction.
func userFraction(percentage int) float64 {
	if percentage >= 100 {
		return 0
	}
	return float64(percentage) / 100.0
}
