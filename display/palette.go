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

// Package display renders the kiosk's screens and drives its three-pixel
// status indicator.
package display

import "github.com/charmbracelet/lipgloss"

var (
	inkPurple = lipgloss.Color("99")
	inkGreen  = lipgloss.Color("76")
	inkRed    = lipgloss.Color("204")
	inkYellow = lipgloss.Color("214")
	inkDim    = lipgloss.Color("243")
)

type tone int

const (
	toneInfo tone = iota
	toneBusy
	toneSuccess
	toneError
	toneAdmin
)

func (t tone) color() lipgloss.Color {
	switch t {
	case toneBusy:
		return inkYellow
	case toneSuccess:
		return inkGreen
	case toneError:
		return inkRed
	case toneAdmin:
		return inkPurple
	default:
		return inkDim
	}
}
