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

package directory

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is wrapped by HTTPError when the backend answered
// with anything but 200.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// HTTPError describes a failed backend request. Either StatusCode or Err
// is set.
type HTTPError struct {
	Err        error
	Op         string
	Method     string
	Path       string
	Body       string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.StatusCode != 0 {
		msg := fmt.Sprintf("%s: %s %s: HTTP %d", e.Op, e.Method, e.Path, e.StatusCode)
		if e.Body != "" {
			msg += ": " + e.Body
		}
		return msg
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.Path, e.Err)
}

func (e *HTTPError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnexpectedStatus
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.Err != nil || e.StatusCode >= 500 || e.StatusCode == 429
}
