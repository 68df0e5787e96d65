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
	"context"
	"log/slog"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
)

// Hook hands state changes to the display and audio sinks. It remembers
// the last announced state pair so each change is announced exactly once,
// whichever machine reports it.
type Hook struct {
	announcer kiosk.Announcer
	last      kiosk.Announcement
	timeout   time.Duration
	mu        syncutil.Mutex
	announced bool
}

// NewHook wraps announcer. timeout bounds each call; zero means no bound.
func NewHook(announcer kiosk.Announcer, timeout time.Duration) *Hook {
	return &Hook{announcer: announcer, timeout: timeout}
}

// Transition announces a unless it describes the state pair announced
// last. It reports whether the sinks were called.
func (h *Hook) Transition(ctx context.Context, a kiosk.Announcement) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.announced && h.last.SameState(a) {
		return false
	}
	h.last, h.announced = a, true
	if h.announcer == nil {
		return true
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	start := time.Now()
	h.announcer.Announce(ctx, a)
	if d := time.Since(start); h.timeout > 0 && d > h.timeout {
		slog.Warn("announcement overran its budget", "state", a.String(), "took", d)
	}
	return true
}

// Last returns the most recent announcement.
func (h *Hook) Last() (kiosk.Announcement, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.announced
}
