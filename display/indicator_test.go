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

package display

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(s kiosk.SessionState) kiosk.Announcement {
	return kiosk.Announcement{Session: s}
}

func admin(s kiosk.AdminState) kiosk.Announcement {
	return kiosk.Announcement{Session: kiosk.StateAdminMode, Admin: s}
}

func TestPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    kiosk.Announcement
		want Pixels
	}{
		{"hardware init", session(kiosk.StateHardwareInit), Pixels{red, red, red}},
		{"software init", session(kiosk.StateSoftwareInit), Pixels{yellow, yellow, yellow}},
		{"system ready", session(kiosk.StateSystemReady), Pixels{green, green, green}},
		{"idle", session(kiosk.StateIdle), Pixels{}},
		{"user detected", session(kiosk.StateUserDetected), Pixels{off, off, blue}},
		{"validating", session(kiosk.StateDatabaseValidation), Pixels{off, yellow, blue}},
		{"check in", session(kiosk.StateCheckIn), Pixels{green, yellow, blue}},
		{"check out", session(kiosk.StateCheckOut), Pixels{green, yellow, blue}},
		{"validation failure", session(kiosk.StateValidationFailure), Pixels{red, yellow, blue}},
		{"entry error", session(kiosk.StateKeypadEntryError), Pixels{red, red, red}},
		{"error", session(kiosk.StateError), Pixels{red, red, red}},
		{"admin begin", admin(kiosk.AdminBegin), Pixels{blue, blue, blue}},
		{"admin enter id", admin(kiosk.AdminEnterID), Pixels{off, yellow, blue}},
		{"admin validate", admin(kiosk.AdminValidateID), Pixels{green, yellow, blue}},
		{"admin tap card", admin(kiosk.AdminTapCard), Pixels{magenta, yellow, blue}},
		{"admin written", admin(kiosk.AdminCardWriteSuccess), Pixels{green, green, green}},
		{"admin write error", admin(kiosk.AdminCardWriteError), Pixels{red, red, red}},
		{"admin error", admin(kiosk.AdminError), Pixels{red, red, red}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Pattern(tt.a, true))
			assert.Equal(t, tt.want, Pattern(tt.a, false), "steady states do not blink")
		})
	}
}

func TestPattern_AdminIgnoredOutsideAdminMode(t *testing.T) {
	t.Parallel()

	a := kiosk.Announcement{Session: kiosk.StateSystemReady, Admin: kiosk.AdminTapCard}
	assert.Equal(t, Pixels{green, green, green}, Pattern(a, true))
}

func TestPattern_WifiBlinks(t *testing.T) {
	t.Parallel()

	a := session(kiosk.StateWifiConnecting)
	assert.Equal(t, Pixels{red, red, red}, Pattern(a, true))
	assert.Equal(t, Pixels{}, Pattern(a, false))
}

func TestRGBHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#ff0000", red.Hex())
	assert.Equal(t, "#ff00ff", magenta.Hex())
	assert.Equal(t, "#000000", off.Hex())
	assert.Equal(t, "#7f7f00", RGB{R: 50, G: 50}.Hex())
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []Pixels
	err    error
}

func (r *frameRecorder) Show(p Pixels) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, p)
	return r.err
}

func (r *frameRecorder) Frames() []Pixels {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Pixels(nil), r.frames...)
}

func TestIndicator_BlinksAndBlanksOnStop(t *testing.T) {
	t.Parallel()

	strip := &frameRecorder{}
	ind := NewIndicator(strip, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	state := func() kiosk.Announcement { return session(kiosk.StateWifiConnecting) }
	require.NoError(t, ind.Start(ctx, state))
	require.ErrorIs(t, ind.Start(ctx, state), ErrIndicatorRunning)

	require.Eventually(t, func() bool { return len(strip.Frames()) >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-ind.Done()

	frames := strip.Frames()
	assert.Equal(t, Pixels{red, red, red}, frames[0], "first refresh is the lit phase")
	assert.Equal(t, Pixels{}, frames[1])
	assert.Equal(t, Pixels{}, frames[len(frames)-1], "strip is blanked on exit")
}

func TestIndicator_KeepsRunningOnStripErrors(t *testing.T) {
	t.Parallel()

	strip := &frameRecorder{err: errors.New("spi write failed")}
	ind := NewIndicator(strip, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ind.Start(ctx, func() kiosk.Announcement { return session(kiosk.StateIdle) }))
	require.Eventually(t, func() bool { return len(strip.Frames()) >= 3 }, time.Second, time.Millisecond)
}

func TestTermStrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewTermStrip(&buf)
	s.SetProfile(termenv.Ascii)

	require.NoError(t, s.Show(Pixels{green, off, blue}))
	assert.Equal(t, "\r● ○ ●", buf.String())
}
