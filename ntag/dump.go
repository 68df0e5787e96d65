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
	"errors"
	"fmt"
	"strings"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/hsanjuan/go-ndef"
)

// Dump errors
var (
	ErrNoMessage        = errors.New("no NDEF message TLV in data area")
	ErrTruncatedMessage = errors.New("NDEF message TLV runs past the data area")
)

// Dump is a raw copy of a tag's memory up to the end of its data area,
// plus the records found in it.
type Dump struct {
	ParseErr error
	Tag      kiosk.TagHandle
	Pages    []kiosk.Page
	Records  []DumpRecord
	CC       CapabilityContainer
}

// DumpRecord is one NDEF record found in a dump.
type DumpRecord struct {
	Type    string
	Text    string
	URI     string
	Payload []byte
	TNF     byte
}

// DumpTag polls for a tag and reads every page from 0 to the end of the
// data area. A data area that does not parse is reported in ParseErr, not
// as an error.
func DumpTag(ctx context.Context, r kiosk.TagReader, timeout time.Duration) (*Dump, error) {
	handle, err := r.PollPresence(ctx, timeout)
	if err != nil {
		return nil, err
	}
	cc, err := ReadCC(ctx, r)
	if err != nil {
		return nil, err
	}

	last := HeaderPage + cc.DataAreaLen()/kiosk.PageSize
	d := &Dump{Tag: handle, CC: cc, Pages: make([]kiosk.Page, 0, last)}
	for p := range last {
		page, err := r.ReadPage(ctx, p)
		if err != nil {
			return nil, kiosk.NewPageReadError(p, err)
		}
		d.Pages = append(d.Pages, page)
	}

	d.Records, d.ParseErr = ParseDataArea(d.DataArea())
	return d, nil
}

// DataArea returns the bytes of the user data area.
func (d *Dump) DataArea() []byte {
	if len(d.Pages) <= HeaderPage {
		return nil
	}
	out := make([]byte, 0, (len(d.Pages)-HeaderPage)*kiosk.PageSize)
	for _, p := range d.Pages[HeaderPage:] {
		out = append(out, p[:]...)
	}
	return out
}

// Hex renders the dump one page per line with an ASCII column.
func (d *Dump) Hex() string {
	var sb strings.Builder
	for i, p := range d.Pages {
		fmt.Fprintf(&sb, "%3d: % X |", i, p[:])
		for _, b := range p {
			if b >= 0x20 && b < 0x7F {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}

// ParseDataArea walks the TLVs of a data area and decodes the records of
// the first NDEF message TLV.
func ParseDataArea(area []byte) ([]DumpRecord, error) {
	raw, err := findMessageTLV(area)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("parse NDEF message: %w", err)
	}

	records := make([]DumpRecord, 0, len(msg.Records))
	for _, rec := range msg.Records {
		payload, err := rec.Payload()
		if err != nil {
			return records, fmt.Errorf("record payload: %w", err)
		}
		dr := DumpRecord{
			TNF:     byte(rec.TNF()),
			Type:    rec.Type(),
			Payload: payload.Marshal(),
		}
		if rec.TNF() == ndef.NFCForumWellKnownType {
			switch dr.Type {
			case "T":
				dr.Text = decodeTextPayload(dr.Payload)
			case "U":
				dr.URI = decodeURIPayload(dr.Payload)
			}
		}
		records = append(records, dr)
	}
	return records, nil
}

func findMessageTLV(area []byte) ([]byte, error) {
	for i := 0; i < len(area); {
		switch area[i] {
		case 0x00:
			i++
			continue
		case tlvTerminator:
			return nil, ErrNoMessage
		}

		if i+1 >= len(area) {
			return nil, ErrTruncatedMessage
		}
		length, hdr := int(area[i+1]), 2
		if length == 0xFF {
			if i+3 >= len(area) {
				return nil, ErrTruncatedMessage
			}
			length, hdr = int(area[i+2])<<8|int(area[i+3]), 4
		}
		start := i + hdr
		end := start + length
		if end > len(area) {
			return nil, ErrTruncatedMessage
		}
		if area[i] == tlvNDEFMessage {
			return area[start:end], nil
		}
		i = end
	}
	return nil, ErrNoMessage
}

func decodeTextPayload(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	langLen := int(p[0] & statusLangMask)
	if len(p) < 1+langLen {
		return ""
	}
	return strings.TrimRight(string(p[1+langLen:]), "\x00")
}
