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

// Package keypad scans the 4x4 matrix keypad, maintains the entry buffer and
// tells the session or admin task when the user presses submit.
//
// Key map:
//
//	1 2 3 A     * backspace
//	4 5 6 B     # submit
//	7 8 9 C     A restart
//	* 0 # D
package keypad

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
)

// Special keys
const (
	KeyBackspace = '*'
	KeySubmit    = '#'
	KeyRestart   = 'A'
)

// ErrAlreadyRunning is returned by Run when the scan loop is already active.
var ErrAlreadyRunning = errors.New("keypad: already running")

// Scanner reads the key currently held down, or 0 when none is.
type Scanner interface {
	Scan(ctx context.Context) (byte, error)
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(ctx context.Context) (byte, error)

// Scan calls f.
func (f ScannerFunc) Scan(ctx context.Context) (byte, error) {
	return f(ctx)
}

// Config holds keypad timing.
type Config struct {
	// ScanInterval is the pause between scans.
	ScanInterval time.Duration
	// Debounce is the settle time after a key is first seen.
	Debounce time.Duration
}

// DefaultConfig returns the timing of the kiosk's membrane keypad.
func DefaultConfig() Config {
	return Config{
		ScanInterval: 100 * time.Millisecond,
		Debounce:     150 * time.Millisecond,
	}
}

// Keypad owns the entry buffer and routes submissions. A submission goes to
// the admin task when RouteToAdmin was called since the previous submission,
// otherwise to the session task.
type Keypad struct {
	scanner    Scanner
	restarter  kiosk.Restarter
	buf        *Buffer
	routeAdmin *syncutil.Notifier
	session    *syncutil.Notifier
	admin      *syncutil.Notifier
	cfg        Config
	running    atomic.Bool
}

// New creates a Keypad. restarter may be nil, in which case the restart key
// is ignored.
func New(scanner Scanner, restarter kiosk.Restarter, cfg Config) *Keypad {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultConfig().ScanInterval
	}
	return &Keypad{
		scanner:    scanner,
		restarter:  restarter,
		cfg:        cfg,
		buf:        NewBuffer(),
		routeAdmin: syncutil.NewNotifier(),
		session:    syncutil.NewNotifier(),
		admin:      syncutil.NewNotifier(),
	}
}

// Buffer returns the entry buffer.
func (k *Keypad) Buffer() *Buffer { return k.buf }

// Submitted is given when the user submits outside admin mode.
func (k *Keypad) Submitted() *syncutil.Notifier { return k.session }

// AdminSubmitted is given when a submission was routed to the admin task.
func (k *Keypad) AdminSubmitted() *syncutil.Notifier { return k.admin }

// RouteToAdmin sends the next submission to the admin task.
func (k *Keypad) RouteToAdmin() { k.routeAdmin.Give() }

// Run scans the matrix until ctx ends.
func (k *Keypad) Run(ctx context.Context) error {
	if !k.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer k.running.Store(false)

	ticker := time.NewTicker(k.cfg.ScanInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		key, err := k.scanner.Scan(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			// Log once per distinct failure so a missing expander does not
			// flood the log at 10 Hz.
			if lastErr == nil || lastErr.Error() != err.Error() {
				slog.Warn("keypad scan failed", "error", err)
			}
			lastErr = err
		case key != 0:
			lastErr = nil
			if !sleepCtx(ctx, k.cfg.Debounce) {
				return nil
			}
			k.HandleKey(key)
		default:
			lastErr = nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// HandleKey applies one debounced key press.
func (k *Keypad) HandleKey(key byte) {
	switch key {
	case KeyBackspace:
		k.buf.Backspace()
		slog.Debug("keypad backspace", "buffer", k.buf.Snapshot())
	case KeySubmit:
		if k.routeAdmin.TryTake() {
			k.admin.Give()
			slog.Debug("keypad submit routed to admin", "len", k.buf.Len())
		} else {
			k.session.Give()
			slog.Debug("keypad submit", "len", k.buf.Len())
		}
	case KeyRestart:
		if k.restarter == nil {
			return
		}
		slog.Info("restart requested from keypad")
		if err := k.restarter.Restart(); err != nil {
			slog.Error("restart failed", "error", err)
		}
	default:
		k.buf.Append(key)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
