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
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: " DEBUG ", want: slog.LevelDebug},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler_DebugFromEnv(t *testing.T) {
	t.Setenv("KIOSK_DEBUG", "1")

	var buf bytes.Buffer
	h, err := NewHandler(&buf, "warn")
	require.NoError(t, err)
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewHandler_Level(t *testing.T) {
	t.Setenv("KIOSK_DEBUG", "")
	t.Setenv("DEBUG", "")

	var buf bytes.Buffer
	h, err := NewHandler(&buf, "warn")
	require.NoError(t, err)
	log := slog.New(h)
	log.Info("hidden")
	log.Warn("shown", "page", 7)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown page=7")

	_, err = NewHandler(&buf, "loud")
	require.Error(t, err)
}

func TestTee(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	log := slog.New(Tee(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("kiosk", "k1")

	log.Debug("poll")
	log.Info("checked in")

	assert.NotContains(t, console.String(), "poll")
	assert.Contains(t, console.String(), "checked in")
	assert.Contains(t, file.String(), "msg=poll kiosk=k1")
	assert.Contains(t, file.String(), "checked in")
}

func TestSessionLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	s, err := initSessionLog(dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kiosk_20260314_092653.log"), s.Path())

	slog.New(s.Handler()).Debug("tag read", "uid", "04ABCDEF123456")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	n, err := s.Write([]byte("late"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "=== Kiosk Session Log ===")
	assert.Contains(t, text, "Started: 2026-03-14T09:26:53Z")
	assert.Contains(t, text, `msg="tag read" uid=04ABCDEF123456`)
	assert.Contains(t, text, "=== Session ended ===")
	assert.NotContains(t, text, "late")
}

func TestInitSessionLog_BadDir(t *testing.T) {
	t.Parallel()

	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "dir"))
	require.Error(t, err)
}
