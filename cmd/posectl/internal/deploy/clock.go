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
	"time"
)

// Clock abstracts time for the orchestrator.
//
// # Description
//
// The orchestrator suspends at exactly two points: the propagation wait
// after a rollout update and the pause between monitoring polls. Both go
// through Clock.Sleep so that tests and dry runs can collapse hours of
// monitoring into instantaneous, deterministic steps.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine; the
// orchestrator never calls a Clock concurrently.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is cancelled, whichever comes
	// first. It returns ctx.Err() when interrupted, nil otherwise.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the production Clock backed by the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SimulatedClock is a Clock whose time only advances when Sleep is
// called. It backs both the unit tests and the --dry-run mode, where a
// week-long gradual ramp has to finish in milliseconds.
//
// # Thread Safety
//
// Safe for concurrent use; state is protected by a mutex.
type SimulatedClock struct {
	mu  sync.Mutex
	now time.Time

	// Slept records every Sleep duration in call order.
	Slept []time.Duration
}

// NewSimulatedClock creates a simulated clock starting at t.
func NewSimulatedClock(t time.Time) *SimulatedClock {
	return &SimulatedClock{now: t}
}

func (c *SimulatedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the simulated time by d without blocking.
func (c *SimulatedClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.Slept = append(c.Slept, d)
	return nil
}

// Advance moves the simulated time forward outside of Sleep.
func (c *SimulatedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Compile-time interface satisfaction checks
var (
	_ Clock = RealClock{}
	_ Clock = (*SimulatedClock)(nil)
)
