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

package session

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the machine timing and retry bounds.
type Config struct {
	// CycleInterval is the pause between steps of either machine.
	CycleInterval time.Duration
	// UserTimeout is the identity capture window after proximity fires.
	// Every keystroke re-arms it.
	UserTimeout time.Duration
	// TagPollTimeout bounds one tag presence poll.
	TagPollTimeout time.Duration
	// SettleDelay is the dwell in SystemReady.
	SettleDelay time.Duration
	// EntryErrorDelay is the dwell in KeypadEntryError.
	EntryErrorDelay time.Duration
	// ResultDelay is how long CheckIn, CheckOut and ValidationFailure stay
	// on screen.
	ResultDelay time.Duration
	// AdminDelay is the dwell of the admin error and success states.
	AdminDelay time.Duration
	// AnnounceTimeout bounds each display, audio or status call.
	AnnounceTimeout time.Duration
	// NumIDAttempts is how many bad admin ID entries end the admin session.
	NumIDAttempts int
	// MaxCardWriteAttempts bounds TapCard retries. Zero retries until the
	// operator walks away, which is what the kiosks shipped with.
	MaxCardWriteAttempts int
}

// DefaultConfig returns the timings of the deployed kiosks.
func DefaultConfig() Config {
	return Config{
		CycleInterval:   500 * time.Millisecond,
		UserTimeout:     10 * time.Second,
		TagPollTimeout:  50 * time.Millisecond,
		SettleDelay:     5 * time.Second,
		EntryErrorDelay: 5 * time.Second,
		ResultDelay:     4 * time.Second,
		AdminDelay:      5 * time.Second,
		AnnounceTimeout: 2 * time.Second,
		NumIDAttempts:   3,
	}
}

// Validate rejects settings the machines cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.CycleInterval <= 0 {
		errs = append(errs, fmt.Errorf("cycle interval must be positive, got %v", c.CycleInterval))
	}
	if c.UserTimeout <= 0 {
		errs = append(errs, fmt.Errorf("user timeout must be positive, got %v", c.UserTimeout))
	}
	if c.TagPollTimeout <= 0 || c.TagPollTimeout >= c.CycleInterval {
		errs = append(errs, fmt.Errorf("tag poll timeout %v must be positive and shorter than the cycle", c.TagPollTimeout))
	}
	if c.NumIDAttempts < 1 {
		errs = append(errs, fmt.Errorf("admin ID attempts must be at least 1, got %d", c.NumIDAttempts))
	}
	if c.MaxCardWriteAttempts < 0 {
		errs = append(errs, fmt.Errorf("card write attempts must not be negative, got %d", c.MaxCardWriteAttempts))
	}
	for name, d := range map[string]time.Duration{
		"settle delay":      c.SettleDelay,
		"entry error delay": c.EntryErrorDelay,
		"result delay":      c.ResultDelay,
		"admin delay":       c.AdminDelay,
		"announce timeout":  c.AnnounceTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, d))
		}
	}
	return errors.Join(errs...)
}
