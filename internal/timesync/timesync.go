// go-kiosk
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-kiosk.
//
// go-kiosk is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-kiosk is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-kiosk; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package timesync checks the kiosk clock against NTP before activity is
// timestamped.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultPool      = "pool.ntp.org"
	DefaultThreshold = 2 * time.Second
	defaultTimeout   = 5 * time.Second
)

// ErrClockSkew is returned when the local clock is further from NTP time
// than the threshold.
var ErrClockSkew = errors.New("clock skew exceeds threshold")

// QueryFunc returns the offset of the local clock from the server's.
type QueryFunc func(ctx context.Context, server string) (time.Duration, error)

// Checker compares the local clock with an NTP pool.
type Checker struct {
	query     QueryFunc
	pool      string
	threshold time.Duration
}

// New creates a Checker. Empty or zero arguments take the defaults.
func New(pool string, threshold time.Duration) *Checker {
	if pool == "" {
		pool = DefaultPool
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Checker{query: queryNTP, pool: pool, threshold: threshold}
}

// WithQuery replaces the NTP query, for tests.
func (c *Checker) WithQuery(q QueryFunc) *Checker {
	c.query = q
	return c
}

// Offset queries the pool once.
func (c *Checker) Offset(ctx context.Context) (time.Duration, error) {
	offset, err := c.query(ctx, c.pool)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", c.pool, err)
	}
	return offset, nil
}

// Check returns ErrClockSkew when the clock is off by more than the
// threshold.
func (c *Checker) Check(ctx context.Context) error {
	offset, err := c.Offset(ctx)
	if err != nil {
		return err
	}
	if offset.Abs() > c.threshold {
		return fmt.Errorf("%w: offset %v, threshold %v", ErrClockSkew, offset, c.threshold)
	}
	slog.Debug("clock in sync", "pool", c.pool, "offset", offset)
	return nil
}

func queryNTP(ctx context.Context, server string) (time.Duration, error) {
	timeout := defaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("invalid NTP response: %w", err)
	}
	return resp.ClockOffset, nil
}
