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

package reader

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures how often a failed command is repeated.
type RetryConfig struct {
	// MaxAttempts counts the first try; 1 or less disables retries.
	MaxAttempts int
	// InitialBackoff is the pause after the first failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the pause.
	MaxBackoff time.Duration
	// Multiplier grows the pause after each failure.
	Multiplier float64
	// Jitter adds up to this fraction of the pause at random.
	Jitter float64
}

// DefaultRetryConfig suits a kiosk reader: a few quick retries, well inside
// one session cycle.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2,
		Jitter:         0.1,
	}
}

// retry runs fn until it succeeds, fails with a non-retryable error, runs
// out of attempts or ctx ends. It returns the last error from fn.
func retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	backoff := cfg.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempt+1 >= cfg.MaxAttempts {
			return err
		}

		t := time.NewTimer(jittered(backoff, cfg.Jitter))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*jitter*float64(d)) //nolint:gosec // timing jitter
}
