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

// Package kiosk holds the shared vocabulary of an unattended check-in/out
// kiosk: the session and admin state enums, the identity format, and the
// collaborator interfaces the state machines drive (tag reader, directory,
// display/audio sinks).
package kiosk

import "fmt"

// SessionState is the top-level kiosk state.
type SessionState int

const (
	StateHardwareInit SessionState = iota
	StateWifiConnecting
	StateSoftwareInit
	StateSystemReady
	StateIdle
	StateUserDetected
	StateDatabaseValidation
	StateCheckIn
	StateCheckOut
	StateAdminMode
	StateKeypadEntryError
	StateValidationFailure
	StateError
)

var sessionStateNames = [...]string{
	StateHardwareInit:       "HARDWARE_INIT",
	StateWifiConnecting:     "WIFI_CONNECTING",
	StateSoftwareInit:       "SOFTWARE_INIT",
	StateSystemReady:        "SYSTEM_READY",
	StateIdle:               "IDLE",
	StateUserDetected:       "USER_DETECTED",
	StateDatabaseValidation: "DATABASE_VALIDATION",
	StateCheckIn:            "CHECK_IN",
	StateCheckOut:           "CHECK_OUT",
	StateAdminMode:          "ADMIN_MODE",
	StateKeypadEntryError:   "KEYPAD_ENTRY_ERROR",
	StateValidationFailure:  "VALIDATION_FAILURE",
	StateError:              "ERROR",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(sessionStateNames) {
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
	return sessionStateNames[s]
}

// AdminState is the card provisioning sub-state. It only carries meaning
// while the session is in StateAdminMode.
type AdminState int

const (
	AdminBegin AdminState = iota
	AdminEnterID
	AdminValidateID
	AdminTapCard
	AdminCardWriteSuccess
	AdminEnterIDError
	AdminCardWriteError
	AdminError
)

var adminStateNames = [...]string{
	AdminBegin:            "BEGIN",
	AdminEnterID:          "ENTER_ID",
	AdminValidateID:       "VALIDATE_ID",
	AdminTapCard:          "TAP_CARD",
	AdminCardWriteSuccess: "CARD_WRITE_SUCCESS",
	AdminEnterIDError:     "ENTER_ID_ERROR",
	AdminCardWriteError:   "CARD_WRITE_ERROR",
	AdminError:            "ERROR",
}

func (s AdminState) String() string {
	if s < 0 || int(s) >= len(adminStateNames) {
		return fmt.Sprintf("AdminState(%d)", int(s))
	}
	return adminStateNames[s]
}

// Announcement is the state pair handed to the display and audio sinks on
// every transition. Identity and Record describe the user the transition is
// about, when there is one.
type Announcement struct {
	Record   *DirectoryRecord
	Identity string
	Session  SessionState
	Admin    AdminState
}

// SameState reports whether two announcements describe the same state pair.
// The admin half is only compared while in admin mode.
func (a Announcement) SameState(b Announcement) bool {
	if a.Session != b.Session {
		return false
	}
	if a.Session != StateAdminMode {
		return true
	}
	return a.Admin == b.Admin
}

func (a Announcement) String() string {
	if a.Session == StateAdminMode {
		return a.Session.String() + "/" + a.Admin.String()
	}
	return a.Session.String()
}
