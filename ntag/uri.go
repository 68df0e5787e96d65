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
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/hsanjuan/go-ndef"
)

// URI identifier codes 0x00 to 0x06 of the NFC Forum URI RTD.
var uriPrefixes = []string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
}

func decodeURIPayload(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	if int(p[0]) < len(uriPrefixes) {
		return uriPrefixes[p[0]] + string(p[1:])
	}
	return string(p[1:])
}

// WriteURI erases the data area and writes uri as a single URI record.
// The kiosk uses it to label spare cards with a help link.
func WriteURI(ctx context.Context, r kiosk.TagReader, uri string, timeout time.Duration) error {
	if _, err := r.PollPresence(ctx, timeout); err != nil {
		return err
	}
	cc, err := ReadCC(ctx, r)
	if err != nil {
		return err
	}

	rec := ndef.NewURIRecord(uri)
	rec.SetMB(true)
	rec.SetME(true)
	msg := &ndef.Message{Records: []*ndef.Record{rec}}
	raw, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal URI record: %w", err)
	}
	if len(raw) > maxShortLen {
		return fmt.Errorf("%w: %d byte message needs a long TLV", kiosk.ErrPayloadTooLarge, len(raw))
	}

	area := make([]byte, 0, len(lockControlTLV)+2+len(raw)+1)
	area = append(area, lockControlTLV[:]...)
	area = append(area, tlvNDEFMessage, byte(len(raw)))
	area = append(area, raw...)
	area = append(area, tlvTerminator)
	if len(area) > cc.DataAreaLen() {
		return fmt.Errorf("%w: %d bytes, %d available", kiosk.ErrPayloadTooLarge, len(area), cc.DataAreaLen())
	}

	if err := Erase(ctx, r, cc.DataAreaLen()); err != nil {
		return err
	}
	for len(area)%kiosk.PageSize != 0 {
		area = append(area, 0x00)
	}
	return writeBytes(ctx, r, HeaderPage, area)
}
