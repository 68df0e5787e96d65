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

// Package ntag reads and writes a single NDEF text record in the page
// memory of NTAG21x tags.
//
// The record is laid out as a 12-byte header on pages 4 to 6 (lock control
// TLV, NDEF message TLV, short well-known record header of type "T" and the
// status byte) followed from page 7 by the language code, the text, a NUL
// byte and the 0xFE terminator TLV.
package ntag

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"golang.org/x/text/language"
)

// DefaultLang is the language written with identity records.
var DefaultLang = language.English

// Record is a decoded text record.
type Record struct {
	Lang     language.Tag
	LangCode string
	Text     string
	Tag      kiosk.TagHandle
	CC       CapabilityContainer
}

// ReadIdentity polls for a tag and returns the text of its NDEF text
// record. The text is not validated as an identity.
func ReadIdentity(ctx context.Context, r kiosk.TagReader, timeout time.Duration) (string, error) {
	rec, err := ReadRecord(ctx, r, timeout)
	if err != nil {
		return "", err
	}
	return rec.Text, nil
}

// ReadRecord polls for a tag and decodes its text record. Text longer than
// kiosk.MaxIDLen-1 bytes is truncated.
func ReadRecord(ctx context.Context, r kiosk.TagReader, timeout time.Duration) (Record, error) {
	handle, err := r.PollPresence(ctx, timeout)
	if err != nil {
		return Record{}, err
	}

	cc, err := ReadCC(ctx, r)
	if err != nil {
		return Record{}, err
	}

	raw := make([]byte, 0, HeaderLen)
	for p := HeaderPage; p < PayloadPage; p++ {
		page, err := r.ReadPage(ctx, p)
		if err != nil {
			return Record{}, kiosk.NewPageReadError(p, err)
		}
		raw = append(raw, page[:]...)
	}

	hdr, err := DecodeHeader(raw)
	if err != nil {
		return Record{}, err
	}

	textLen := hdr.TextLen()
	if textLen >= kiosk.MaxIDLen {
		slog.Debug("text record truncated", "declared", textLen, "max", kiosk.MaxIDLen-1)
		textLen = kiosk.MaxIDLen - 1
	}

	payload, err := readPayload(ctx, r, hdr.LangLen+textLen+1)
	if err != nil {
		return Record{}, err
	}

	text := payload[hdr.LangLen : hdr.LangLen+textLen]
	if i := bytes.IndexByte(text, 0x00); i >= 0 {
		text = text[:i]
	} else if textLen < hdr.TextLen() {
		text = trimPartialRune(text)
	}
	code := string(payload[:hdr.LangLen])

	slog.Debug("read text record", "uid", handle.String(), "lang", code, "len", len(text))
	return Record{
		Lang:     parseLang(code),
		LangCode: code,
		Text:     string(text),
		Tag:      handle,
		CC:       cc,
	}, nil
}

// trimPartialRune drops a trailing UTF-8 sequence cut short by truncation.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			break
		}
	}
	return b
}

// readPayload reads n bytes from the payload pages, one page at a time.
func readPayload(ctx context.Context, r kiosk.PageReader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for p := PayloadPage; len(out) < n; p++ {
		page, err := r.ReadPage(ctx, p)
		if err != nil {
			return nil, kiosk.NewPageReadError(p, err)
		}
		take := min(n-len(out), kiosk.PageSize)
		out = append(out, page[:take]...)
	}
	return out, nil
}

// WriteIdentity erases the data area and writes text as an English text
// record. dataAreaLen is the data area size from the capability container.
func WriteIdentity(ctx context.Context, w kiosk.PageWriter, text string, dataAreaLen int) error {
	return WriteText(ctx, w, text, DefaultLang, dataAreaLen)
}

// WriteText erases the data area and writes text as a text record in the
// given language. Nothing is written when the record does not fit.
func WriteText(ctx context.Context, w kiosk.PageWriter, text string, lang language.Tag, dataAreaLen int) error {
	code, err := langCode(lang)
	if err != nil {
		return err
	}

	payloadLen := len(code) + len(text) + 1
	if msgLen := NewTextHeader(len(code), len(text)).MessageLen; msgLen > maxShortLen {
		return fmt.Errorf("%w: %d byte message exceeds a short record",
			kiosk.ErrPayloadTooLarge, msgLen)
	}
	if payloadLen+1 > dataAreaLen-HeaderLen {
		return fmt.Errorf("%w: %d payload bytes, %d available",
			kiosk.ErrPayloadTooLarge, payloadLen+1, dataAreaLen-HeaderLen)
	}

	if err := Erase(ctx, w, dataAreaLen); err != nil {
		return err
	}

	hdr := NewTextHeader(len(code), len(text)).Encode()
	if err := writeBytes(ctx, w, HeaderPage, hdr[:]); err != nil {
		return err
	}

	payload := make([]byte, 0, payloadLen)
	payload = append(payload, code...)
	payload = append(payload, text...)
	payload = append(payload, 0x00)
	if err := writeTerminated(ctx, w, PayloadPage, payload); err != nil {
		return err
	}

	slog.Debug("wrote text record", "lang", code, "len", len(text), "area", dataAreaLen)
	return nil
}

// Provision polls for a tag, reads its capability container and writes
// text as its identity record.
func Provision(ctx context.Context, r kiosk.TagReader, text string, timeout time.Duration) error {
	if _, err := r.PollPresence(ctx, timeout); err != nil {
		return err
	}
	cc, err := ReadCC(ctx, r)
	if err != nil {
		return err
	}
	return WriteIdentity(ctx, r, text, cc.DataAreaLen())
}

// writeBytes writes data over consecutive pages starting at first. The
// length of data must be a multiple of the page size.
func writeBytes(ctx context.Context, w kiosk.PageWriter, first int, data []byte) error {
	for off := 0; off < len(data); off += kiosk.PageSize {
		var page kiosk.Page
		copy(page[:], data[off:])
		p := first + off/kiosk.PageSize
		if err := w.WritePage(ctx, p, page); err != nil {
			return kiosk.NewPageWriteError(p, err)
		}
	}
	return nil
}

// writeTerminated writes data from page first and appends the terminator
// TLV. The terminator shares the last page when there is room, otherwise it
// gets a page of its own.
func writeTerminated(ctx context.Context, w kiosk.PageWriter, first int, data []byte) error {
	p := first
	for len(data) > 0 {
		var page kiosk.Page
		n := copy(page[:], data)
		data = data[n:]
		if len(data) == 0 && n < kiosk.PageSize {
			page[n] = tlvTerminator
			if err := w.WritePage(ctx, p, page); err != nil {
				return kiosk.NewPageWriteError(p, err)
			}
			return nil
		}
		if err := w.WritePage(ctx, p, page); err != nil {
			return kiosk.NewPageWriteError(p, err)
		}
		p++
	}
	if err := w.WritePage(ctx, p, kiosk.Page{tlvTerminator}); err != nil {
		return kiosk.NewPageWriteError(p, err)
	}
	return nil
}
