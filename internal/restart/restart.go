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

// Package restart replaces the running kiosk process with a fresh copy of
// itself, the equivalent of the firmware's reset key.
package restart

import (
	"fmt"
	"log/slog"
	"os"
)

// Execer restarts the process in place. Before runs first so the caller can
// flush logs and release hardware.
type Execer struct {
	exec       func(argv0 string, argv, envv []string) error
	executable func() (string, error)
	Before     func()
}

// New returns an Execer for the current process.
func New(before func()) *Execer {
	return &Execer{exec: execProcess, executable: os.Executable, Before: before}
}

// Restart execs the current binary with the original arguments. It only
// returns on failure.
func (e *Execer) Restart() error {
	path, err := e.executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	slog.Info("restarting kiosk", "path", path)
	if e.Before != nil {
		e.Before()
	}
	if err := e.exec(path, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
