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

import "fmt"

const (
	// IDLen is the length of a user identity.
	IDLen = 10
	// MaxIDLen bounds any identity text decoded from a tag, terminator included.
	MaxIDLen = 64
)

// ValidateIdentity checks that id is exactly IDLen ASCII digits.
func ValidateIdentity(id string) error {
	if len(id) != IDLen {
		return fmt.Errorf("%w: got %d characters, want %d", ErrIdentityLength, len(id), IDLen)
	}
	if !IsNumeric(id) {
		return fmt.Errorf("%w: %q", ErrIdentityNotNumeric, id)
	}
	return nil
}

// IsNumeric reports whether s is non-empty and made only of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
