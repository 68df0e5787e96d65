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

package ntag

import (
	"context"
	"fmt"

	kiosk "github.com/ZaparooProject/go-kiosk"
)

// Capability container sentinels
const (
	CCMagic   = 0xE1
	CCVersion = 0x10
)

// CapabilityContainer is the decoded content of page 3.
type CapabilityContainer struct {
	Magic    byte
	Version  byte
	AreaSize byte // data area in units of 8 bytes
	Access   byte
}

// DataAreaLen is the size of the user data area in bytes.
func (cc CapabilityContainer) DataAreaLen() int {
	return int(cc.AreaSize) * 8
}

// Formatted reports whether the tag carries the NDEF magic and version.
func (cc CapabilityContainer) Formatted() bool {
	return cc.Magic == CCMagic && cc.Version == CCVersion
}

// Model guesses the NTAG21x variant from the data area size.
func (cc CapabilityContainer) Model() string {
	switch cc.AreaSize {
	case 0x12:
		return "NTAG213"
	case 0x3E:
		return "NTAG215"
	case 0x6D:
		return "NTAG216"
	default:
		return "NTAG21x"
	}
}

// ParseCC decodes a capability container page.
func ParseCC(p kiosk.Page) CapabilityContainer {
	return CapabilityContainer{Magic: p[0], Version: p[1], AreaSize: p[2], Access: p[3]}
}

// ReadCC reads page 3 and rejects tags that are not NDEF formatted.
func ReadCC(ctx context.Context, r kiosk.PageReader) (CapabilityContainer, error) {
	page, err := r.ReadPage(ctx, CCPage)
	if err != nil {
		return CapabilityContainer{}, kiosk.NewPageReadError(CCPage, err)
	}
	cc := ParseCC(page)
	if !cc.Formatted() {
		return cc, fmt.Errorf("%w: page 3 starts 0x%02X 0x%02X, want 0x%02X 0x%02X",
			kiosk.ErrNotFormatted, cc.Magic, cc.Version, CCMagic, CCVersion)
	}
	return cc, nil
}
