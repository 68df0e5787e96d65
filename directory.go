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

package kiosk

import (
	"context"
	"strings"
)

// Role is the directory role of a user.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleStudent Role = "Student"
)

// CheckedIn is the check-in status value of a user who is on site.
const CheckedIn = "Checked In"

// DirectoryRecord is one user as returned by a directory lookup.
type DirectoryRecord struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Role          Role   `json:"role"`
	ActiveUser    string `json:"activeUser"`
	CheckInStatus string `json:"checkInStatus"`
}

// Active reports whether the user may check in, check out, or have a card
// written.
func (r DirectoryRecord) Active() bool {
	return r.ActiveUser == "Yes"
}

// IsCheckedIn reports whether the user is currently checked in.
func (r DirectoryRecord) IsCheckedIn() bool {
	return r.CheckInStatus == CheckedIn
}

// FullName joins first and last name.
func (r DirectoryRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Directory is the remote identity and check-in/out ledger.
//
// RecordCheckIn and RecordCheckOut return nil on success.
type Directory interface {
	Lookup(ctx context.Context, id string) (DirectoryRecord, error)
	RecordCheckIn(ctx context.Context, id string) error
	RecordCheckOut(ctx context.Context, id string) error
}
