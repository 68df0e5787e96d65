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
	"fmt"
	"io"
	"strings"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const screenWidth = 34

// Content is what one screen shows.
type Content struct {
	Title string
	Lines []string
	tone  tone
}

// Describe returns the screen for a. location is shown while idle.
func Describe(a kiosk.Announcement, location string) Content {
	who := []string{a.Identity}
	if a.Record != nil && a.Record.FullName() != "" {
		who = []string{a.Record.FullName(), a.Identity}
	}

	if a.Session == kiosk.StateAdminMode {
		switch a.Admin {
		case kiosk.AdminValidateID:
			return Content{Title: "Checking ID", Lines: []string{a.Identity}, tone: toneBusy}
		case kiosk.AdminTapCard:
			return Content{Title: "Tap & Hold ID", Lines: []string{a.Identity}, tone: toneAdmin}
		case kiosk.AdminCardWriteSuccess:
			return Content{Title: "Card Written", Lines: []string{a.Identity}, tone: toneSuccess}
		case kiosk.AdminEnterIDError:
			return Content{Title: "Invalid ID", Lines: []string{"Try again"}, tone: toneError}
		case kiosk.AdminCardWriteError:
			return Content{Title: "Card Write Failed", Lines: []string{"Try Again"}, tone: toneError}
		case kiosk.AdminError:
			return Content{Title: "Admin Error", Lines: []string{"Exiting admin mode"}, tone: toneError}
		default:
			return Content{Title: "Admin Mode", Lines: []string{"Enter user ID", "to program card"}, tone: toneAdmin}
		}
	}

	switch a.Session {
	case kiosk.StateHardwareInit:
		return Content{Title: "Initializing Hardware", tone: toneBusy}
	case kiosk.StateWifiConnecting:
		return Content{Title: "WiFi Connecting", tone: toneBusy}
	case kiosk.StateSoftwareInit:
		return Content{Title: "Initializing Software", tone: toneBusy}
	case kiosk.StateSystemReady:
		return Content{Title: "System Ready", tone: toneSuccess}
	case kiosk.StateIdle:
		return Content{Title: "Welcome", Lines: []string{location}}
	case kiosk.StateUserDetected:
		return Content{Title: "Welcome!", Lines: []string{"Scan your ID", "or enter ID #"}, tone: toneAdmin}
	case kiosk.StateKeypadEntryError:
		return Content{Title: "Invalid ID Length", Lines: []string{fmt.Sprintf("IDs have %d digits", kiosk.IDLen)}, tone: toneError}
	case kiosk.StateDatabaseValidation:
		return Content{Title: "Checking ID", Lines: []string{a.Identity}, tone: toneBusy}
	case kiosk.StateCheckIn:
		return Content{Title: "Check-In", Lines: who, tone: toneSuccess}
	case kiosk.StateCheckOut:
		return Content{Title: "Check-Out", Lines: who, tone: toneSuccess}
	case kiosk.StateValidationFailure:
		return Content{Title: "Validation Failed", Lines: []string{a.Identity}, tone: toneError}
	case kiosk.StateError:
		return Content{Title: "System Error", Lines: []string{"Please contact staff"}, tone: toneError}
	default:
		return Content{Title: a.String()}
	}
}

// Screen draws each announced state as a bordered panel on a terminal.
type Screen struct {
	w        io.Writer
	r        *lipgloss.Renderer
	location string
	mu       syncutil.Mutex
}

// NewScreen writes to w, detecting its color support.
func NewScreen(w io.Writer, location string) *Screen {
	return &Screen{
		w:        w,
		r:        lipgloss.NewRenderer(w, termenv.WithColorCache(true)),
		location: location,
	}
}

// SetProfile forces a color profile, termenv.Ascii for plain text.
func (s *Screen) SetProfile(p termenv.Profile) {
	s.r.SetColorProfile(p)
}

// Render returns the panel for a.
func (s *Screen) Render(a kiosk.Announcement) string {
	c := Describe(a, s.location)
	color := c.tone.color()

	title := s.r.NewStyle().Bold(true).Foreground(color).Render(c.Title)
	body := []string{title}
	for _, l := range c.Lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		body = append(body, s.r.NewStyle().Foreground(inkDim).Render(l))
	}

	return s.r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2).
		Width(screenWidth).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, body...))
}

// Announce implements kiosk.Announcer.
func (s *Screen) Announce(_ context.Context, a kiosk.Announcement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, s.Render(a))
}
