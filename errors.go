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
	"errors"
	"fmt"
)

// Tag codec errors
var (
	ErrNoTagPresent     = errors.New("no tag present")
	ErrNotFormatted     = errors.New("tag is not NDEF formatted")
	ErrMalformedHeader  = errors.New("malformed NDEF text record header")
	ErrPayloadTooLarge  = errors.New("payload does not fit the tag data area")
	ErrPageRead         = errors.New("page read failed")
	ErrPageWrite        = errors.New("page write failed")
	ErrPageOutOfRange   = errors.New("page index out of range")
	ErrUnsupportedLang  = errors.New("unsupported language code")
	ErrReaderNotStarted = errors.New("reader not initialised")
)

// Identity errors
var (
	ErrIdentityLength     = errors.New("identity has wrong length")
	ErrIdentityNotNumeric = errors.New("identity contains non-numeric characters")
)

// Directory errors
var (
	ErrLookupFailed  = errors.New("directory lookup failed")
	ErrUserNotFound  = errors.New("user not found")
	ErrInactiveUser  = errors.New("user is not active")
	ErrUnknownRole   = errors.New("unknown user role")
	ErrRecordFailed  = errors.New("directory update failed")
	ErrNotConfigured = errors.New("collaborator not configured")
)

// PageError wraps a page level failure with the operation and page index.
type PageError struct {
	Err  error  // Underlying error
	Op   string // Operation that failed
	Page int    // Page index
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s page %d: %v", e.Op, e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// NewPageReadError builds a PageError for a failed page read.
func NewPageReadError(page int, err error) error {
	return &PageError{Op: "read", Page: page, Err: fmt.Errorf("%w: %w", ErrPageRead, err)}
}

// NewPageWriteError builds a PageError for a failed page write.
func NewPageWriteError(page int, err error) error {
	return &PageError{Op: "write", Page: page, Err: fmt.Errorf("%w: %w", ErrPageWrite, err)}
}

// IsCodecRejection reports whether err means the tag content itself was
// unusable, as opposed to no tag being in the field.
func IsCodecRejection(err error) bool {
	if err == nil || errors.Is(err, ErrNoTagPresent) {
		return false
	}
	return errors.Is(err, ErrNotFormatted) ||
		errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrPageRead)
}
