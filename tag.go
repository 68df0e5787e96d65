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
	"encoding/hex"
	"strings"
	"time"
)

// PageSize is the size of one addressable tag memory page.
const PageSize = 4

// Page is the content of one tag memory page.
type Page [PageSize]byte

// TagHandle identifies the tag found by a presence poll. It is only valid
// for the poll cycle that produced it.
type TagHandle struct {
	UID []byte
}

// String returns the UID as upper-case hex.
func (h TagHandle) String() string {
	return strings.ToUpper(hex.EncodeToString(h.UID))
}

// Manufacturer returns the chip maker encoded in the first UID byte of a
// 7-byte UID, or "Unknown".
func (h TagHandle) Manufacturer() string {
	if len(h.UID) != 7 {
		return "Unknown"
	}
	switch h.UID[0] {
	case 0x04:
		return "NXP"
	case 0x02:
		return "STMicroelectronics"
	default:
		return "Unknown"
	}
}

// PageReader reads single tag pages.
type PageReader interface {
	ReadPage(ctx context.Context, page int) (Page, error)
}

// PageWriter writes single tag pages.
type PageWriter interface {
	WritePage(ctx context.Context, page int, data Page) error
}

// TagReader is the contactless reader primitive the codec is built on.
//
// PollPresence blocks for at most timeout and returns ErrNoTagPresent when
// no tag answered. Page access applies to the tag found by the last
// successful poll.
type TagReader interface {
	PageReader
	PageWriter
	PollPresence(ctx context.Context, timeout time.Duration) (TagHandle, error)
}
