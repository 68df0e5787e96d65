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

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
)

// SessionLog is a per-run log file that records every level, whatever the
// console shows. Attach it to support tickets.
type SessionLog struct {
	file *os.File
	path string
	mu   syncutil.Mutex
}

// InitSessionLog creates kiosk_YYYYMMDD_HHMMSS.log in dir and writes the
// session header.
func InitSessionLog(dir string) (*SessionLog, error) {
	return initSessionLog(dir, time.Now())
}

func initSessionLog(dir string, now time.Time) (*SessionLog, error) {
	if dir == "" {
		dir = "."
	}
	name := filepath.Join(dir, fmt.Sprintf("kiosk_%s.log", now.Format("20060102_150405")))
	f, err := os.Create(name) //nolint:gosec // name is built from dir and a timestamp
	if err != nil {
		return nil, fmt.Errorf("failed to create session log: %w", err)
	}
	writeSessionHeader(f, now)
	return &SessionLog{file: f, path: name}, nil
}

// Path returns the file name.
func (s *SessionLog) Path() string { return s.path }

// Handler returns a debug-level text handler writing to the file.
func (s *SessionLog) Handler() slog.Handler {
	return slog.NewTextHandler(s, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Write implements io.Writer. Writes after Close are dropped.
func (s *SessionLog) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return len(p), nil
	}
	n, err := s.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("session log write: %w", err)
	}
	return n, nil
}

// Close writes the footer and closes the file. It is safe on a nil
// SessionLog.
func (s *SessionLog) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	_, _ = fmt.Fprintf(s.file, "\n%s === Session ended ===\n", time.Now().Format("15:04:05.000"))
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// ConfigureWithSession installs a default logger that writes level and
// above to stderr and everything to the session log.
func ConfigureWithSession(level string, s *SessionLog) error {
	console, err := NewHandler(os.Stderr, level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(Tee(console, s.Handler())))
	return nil
}

func writeSessionHeader(w io.Writer, now time.Time) {
	_, _ = fmt.Fprint(w, "=== Kiosk Session Log ===\n")
	_, _ = fmt.Fprintf(w, "Started: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "PID: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(w, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	if exe, err := os.Executable(); err == nil {
		_, _ = fmt.Fprintf(w, "Executable: %s\n", exe)
	}
	_, _ = fmt.Fprintf(w, "Command Line: %s\n", strings.Join(os.Args, " "))
	_, _ = fmt.Fprint(w, "=========================\n\n")
}
