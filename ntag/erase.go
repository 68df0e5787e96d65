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
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
)

// Erase zeroes every page of the data area. It stops at the first failed
// write and leaves the area partially erased.
func Erase(ctx context.Context, w kiosk.PageWriter, dataAreaLen int) error {
	last := HeaderPage + dataAreaLen/kiosk.PageSize
	for p := HeaderPage; p < last; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WritePage(ctx, p, kiosk.Page{}); err != nil {
			return kiosk.NewPageWriteError(p, err)
		}
	}
	return nil
}

// EraseTag polls for a tag and zeroes its whole data area.
func EraseTag(ctx context.Context, r kiosk.TagReader, timeout time.Duration) (CapabilityContainer, error) {
	if _, err := r.PollPresence(ctx, timeout); err != nil {
		return CapabilityContainer{}, err
	}
	cc, err := ReadCC(ctx, r)
	if err != nil {
		return cc, err
	}
	return cc, Erase(ctx, r, cc.DataAreaLen())
}
