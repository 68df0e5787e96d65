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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// NumPixels is the length of the status strip.
const NumPixels = 3

// DefaultRefresh is the strip refresh period. Blinking patterns toggle once
// per refresh.
const DefaultRefresh = 500 * time.Millisecond

const level = 100

// ErrIndicatorRunning is returned by a second Start.
var ErrIndicatorRunning = errors.New("display: indicator already running")

// RGB is one pixel at 0..100 brightness per channel.
type RGB struct {
	R, G, B uint8
}

// Pixels is a full strip frame. Index 0 is the first pixel on the chain.
type Pixels [NumPixels]RGB

var (
	off     = RGB{}
	red     = RGB{R: level}
	green   = RGB{G: level}
	blue    = RGB{B: level}
	yellow  = RGB{R: level, G: level}
	magenta = RGB{R: level, B: level}
)

func fill(c RGB) Pixels { return Pixels{c, c, c} }

// progress lights pixels from the end of the strip inwards: the last pixel
// first, then the middle, then the first.
func progress(c ...RGB) Pixels {
	var p Pixels
	for i, v := range c {
		p[NumPixels-1-i] = v
	}
	return p
}

// Pattern returns the frame for a. blinkOn selects the lit phase of
// blinking states.
func Pattern(a kiosk.Announcement, blinkOn bool) Pixels {
	if a.Session == kiosk.StateAdminMode {
		switch a.Admin {
		case kiosk.AdminEnterID:
			return progress(blue, yellow)
		case kiosk.AdminValidateID:
			return progress(blue, yellow, green)
		case kiosk.AdminTapCard:
			return progress(blue, yellow, magenta)
		case kiosk.AdminCardWriteSuccess:
			return fill(green)
		case kiosk.AdminEnterIDError, kiosk.AdminCardWriteError, kiosk.AdminError:
			return fill(red)
		default:
			return fill(blue)
		}
	}

	switch a.Session {
	case kiosk.StateHardwareInit, kiosk.StateKeypadEntryError, kiosk.StateError:
		return fill(red)
	case kiosk.StateWifiConnecting:
		if blinkOn {
			return fill(red)
		}
		return fill(off)
	case kiosk.StateSoftwareInit:
		return fill(yellow)
	case kiosk.StateSystemReady:
		return fill(green)
	case kiosk.StateUserDetected:
		return progress(blue)
	case kiosk.StateDatabaseValidation:
		return progress(blue, yellow)
	case kiosk.StateCheckIn, kiosk.StateCheckOut:
		return progress(blue, yellow, green)
	case kiosk.StateValidationFailure:
		return progress(blue, yellow, red)
	default:
		return fill(off)
	}
}

// Strip shows a frame on physical or emulated pixels.
type Strip interface {
	Show(p Pixels) error
}

// Indicator refreshes a Strip from the current machine state.
type Indicator struct {
	strip    Strip
	interval time.Duration
	started  atomic.Bool
	done     chan struct{}
}

// NewIndicator refreshes strip every interval, DefaultRefresh when zero.
func NewIndicator(strip Strip, interval time.Duration) *Indicator {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	return &Indicator{strip: strip, interval: interval, done: make(chan struct{})}
}

// Start launches the refresh loop. It returns immediately; the loop blanks
// the strip and exits when ctx ends.
func (ind *Indicator) Start(ctx context.Context, state func() kiosk.Announcement) error {
	if !ind.started.CompareAndSwap(false, true) {
		return ErrIndicatorRunning
	}
	go ind.run(ctx, state)
	return nil
}

// Done is closed once the loop has exited.
func (ind *Indicator) Done() <-chan struct{} { return ind.done }

func (ind *Indicator) run(ctx context.Context, state func() kiosk.Announcement) {
	defer close(ind.done)

	ticker := time.NewTicker(ind.interval)
	defer ticker.Stop()

	var (
		blink   bool
		lastErr error
	)
	for {
		blink = !blink
		err := ind.strip.Show(Pattern(state(), blink))
		if err != nil && (lastErr == nil || lastErr.Error() != err.Error()) {
			slog.Warn("status strip update failed", "error", err)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if err := ind.strip.Show(Pixels{}); err != nil {
				slog.Debug("status strip blank failed", "error", err)
			}
			return
		case <-ticker.C:
		}
	}
}

// TermStrip draws the strip as colored dots on a single terminal line.
type TermStrip struct {
	w io.Writer
	r *lipgloss.Renderer
}

// NewTermStrip writes frames to w.
func NewTermStrip(w io.Writer) *TermStrip {
	return &TermStrip{w: w, r: lipgloss.NewRenderer(w)}
}

// SetProfile forces a color profile.
func (s *TermStrip) SetProfile(p termenv.Profile) { s.r.SetColorProfile(p) }

// Render returns the frame as text. Dark pixels are drawn hollow.
func (s *TermStrip) Render(p Pixels) string {
	dots := make([]string, 0, NumPixels)
	for _, px := range p {
		if px == off {
			dots = append(dots, s.r.NewStyle().Foreground(inkDim).Render("○"))
			continue
		}
		dots = append(dots, s.r.NewStyle().Foreground(lipgloss.Color(px.Hex())).Render("●"))
	}
	return strings.Join(dots, " ")
}

// Show implements Strip.
func (s *TermStrip) Show(p Pixels) error {
	if _, err := fmt.Fprintf(s.w, "\r%s", s.Render(p)); err != nil {
		return fmt.Errorf("draw status strip: %w", err)
	}
	return nil
}

// Hex returns the pixel as a full-scale #rrggbb color.
func (c RGB) Hex() string {
	scale := func(v uint8) uint8 {
		if v >= level {
			return 0xFF
		}
		return uint8(uint16(v) * 0xFF / level)
	}
	return fmt.Sprintf("#%02x%02x%02x", scale(c.R), scale(c.G), scale(c.B))
}
