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

package audio

import (
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"periph.io/x/conn/v3/physic"
)

// Volume is the fraction of full duty cycle a note is driven at.
type Volume float64

// Buzzer volumes
const (
	VolumeLow    Volume = 0.05
	VolumeMedium Volume = 0.1
	VolumeHigh   Volume = 0.2
)

// Gap is the silence after every note so repeated pitches stay distinct.
const Gap = 20 * time.Millisecond

// Pitches, in equal temperament rounded to the hertz.
const (
	Rest physic.Frequency = 0
	C3   physic.Frequency = 131 * physic.Hertz
	C4   physic.Frequency = 262 * physic.Hertz
	E4   physic.Frequency = 330 * physic.Hertz
	F4   physic.Frequency = 349 * physic.Hertz
	G4   physic.Frequency = 392 * physic.Hertz
	A4   physic.Frequency = 440 * physic.Hertz
	B4   physic.Frequency = 494 * physic.Hertz
	C5   physic.Frequency = 523 * physic.Hertz
	D5   physic.Frequency = 587 * physic.Hertz
	E5   physic.Frequency = 659 * physic.Hertz
	G5   physic.Frequency = 784 * physic.Hertz
)

// Note is one tone. A Rest pitch is silence.
type Note struct {
	Pitch    physic.Frequency
	Duration time.Duration
}

// Melody is a sequence of notes played at one volume.
type Melody struct {
	Notes  []Note
	Volume Volume
}

// Duration is the total play time including gaps.
func (m Melody) Duration() time.Duration {
	var d time.Duration
	for _, n := range m.Notes {
		d += n.Duration + Gap
	}
	return d
}

func n(p physic.Frequency, ms int) Note {
	return Note{Pitch: p, Duration: time.Duration(ms) * time.Millisecond}
}

func tune(v Volume, notes ...Note) Melody {
	return Melody{Notes: notes, Volume: v}
}

var (
	adminChime = tune(VolumeMedium,
		n(G4, 100), n(B4, 100), n(D5, 100), n(G5, 200), n(D5, 100), n(B4, 100), n(G4, 200))

	sessionMelodies = map[kiosk.SessionState]Melody{
		kiosk.StateHardwareInit:   tune(VolumeLow, n(C3, 200)),
		kiosk.StateWifiConnecting: tune(VolumeMedium, n(C4, 100), n(E4, 100), n(G4, 200)),
		kiosk.StateSoftwareInit:   tune(VolumeMedium, n(G4, 100), n(E4, 100), n(C4, 200)),
		kiosk.StateSystemReady:    tune(VolumeMedium, n(C4, 100), n(E4, 100), n(G4, 100), n(C5, 250)),
		kiosk.StateUserDetected:   tune(VolumeMedium, n(C5, 80), n(E5, 80), n(G5, 150)),
		kiosk.StateCheckIn: tune(VolumeMedium,
			n(C4, 100), n(E4, 100), n(G4, 100), n(C5, 150), n(E5, 200), n(C5, 250)),
		kiosk.StateCheckOut:          tune(VolumeMedium, n(C5, 150), n(G4, 100), n(E4, 100), n(C4, 250)),
		kiosk.StateValidationFailure: tune(VolumeMedium, n(A4, 200), n(F4, 300), n(A4, 200), n(F4, 300)),
		kiosk.StateError: tune(VolumeHigh,
			n(A4, 200), n(Rest, 100), n(A4, 200), n(Rest, 100), n(A4, 400)),
	}
)

// MelodyFor returns the melody for a and whether the state has one.
func MelodyFor(a kiosk.Announcement) (Melody, bool) {
	if a.Session == kiosk.StateAdminMode {
		if a.Admin == kiosk.AdminBegin {
			return Melody{}, false
		}
		return adminChime, true
	}
	m, ok := sessionMelodies[a.Session]
	return m, ok
}
