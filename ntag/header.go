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
	"fmt"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"golang.org/x/text/language"
)

// Memory layout of an NTAG21x carrying a single NDEF text record.
const (
	CCPage      = 3
	HeaderPage  = 4
	PayloadPage = 7
	HeaderLen   = 12
)

// TLV and record header values
const (
	tlvLockControl = 0x01
	tlvNDEFMessage = 0x03
	tlvTerminator  = 0xFE

	recordFlagMB     = 0x80
	recordFlagME     = 0x40
	recordFlagSR     = 0x10
	recordTNFMask    = 0x07
	tnfWellKnown     = 0x01
	textRecordType   = 'T'
	statusLangMask   = 0x3F
	statusUTF16Flag  = 0x80
	recordHeaderSize = 4 // flags, type length, payload length, type

	// maxShortLen bounds both the one-byte TLV length and the short record
	// payload length. 0xFF would announce a three-byte TLV length.
	maxShortLen = 0xFE
)

// lockControlTLV is the dynamic lock control TLV every NTAG213 record
// starts with: lock bytes at page 0x0A offset 0, 16 lock bits, 4-byte
// pages, 16 bytes per lock bit.
var lockControlTLV = [5]byte{tlvLockControl, 0x03, 0xA0, 0x10, 0x44}

// Header is the fixed 12-byte wrapper in front of a text record payload.
type Header struct {
	MessageLen int  // NDEF message TLV length
	Flags      byte // record header flags and TNF
	TypeLen    int
	PayloadLen int // record payload length, status byte included
	Type       byte
	LangLen    int
	UTF16      bool
}

// TextLen is the number of bytes the header says follow the language code,
// terminating NUL excluded.
func (h Header) TextLen() int {
	return h.MessageLen - 5 - (1 + h.LangLen)
}

// NewTextHeader builds the header for a payload of langLen language code
// bytes followed by textLen text bytes.
func NewTextHeader(langLen, textLen int) Header {
	payloadLen := langLen + textLen + 1
	return Header{
		MessageLen: payloadLen + 5,
		Flags:      recordFlagMB | recordFlagME | recordFlagSR | tnfWellKnown,
		TypeLen:    1,
		PayloadLen: payloadLen + 1,
		Type:       textRecordType,
		LangLen:    langLen,
	}
}

// Encode serialises the header.
func (h Header) Encode() [HeaderLen]byte {
	var out [HeaderLen]byte
	copy(out[:5], lockControlTLV[:])
	out[5] = tlvNDEFMessage
	out[6] = byte(h.MessageLen)
	out[7] = h.Flags
	out[8] = byte(h.TypeLen)
	out[9] = byte(h.PayloadLen)
	out[10] = h.Type
	status := byte(h.LangLen) & statusLangMask
	if h.UTF16 {
		status |= statusUTF16Flag
	}
	out[11] = status
	return out
}

// DecodeHeader validates and decodes the 12 header bytes read from pages
// 4 to 6.
func DecodeHeader(raw []byte) (Header, error) {
	if len(raw) < HeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", kiosk.ErrMalformedHeader, len(raw))
	}
	if raw[5] != tlvNDEFMessage {
		return Header{}, fmt.Errorf("%w: TLV tag 0x%02X, want 0x%02X",
			kiosk.ErrMalformedHeader, raw[5], tlvNDEFMessage)
	}

	h := Header{
		MessageLen: int(raw[6]),
		Flags:      raw[7],
		TypeLen:    int(raw[8]),
		PayloadLen: int(raw[9]),
		Type:       raw[10],
		LangLen:    int(raw[11] & statusLangMask),
		UTF16:      raw[11]&statusUTF16Flag != 0,
	}

	switch {
	case h.Flags&recordTNFMask != tnfWellKnown:
		return Header{}, fmt.Errorf("%w: TNF %d is not well-known", kiosk.ErrMalformedHeader, h.Flags&recordTNFMask)
	case h.Flags&recordFlagSR == 0:
		return Header{}, fmt.Errorf("%w: not a short record", kiosk.ErrMalformedHeader)
	case h.Flags&(recordFlagMB|recordFlagME) != recordFlagMB|recordFlagME:
		return Header{}, fmt.Errorf("%w: not a single-record message", kiosk.ErrMalformedHeader)
	case h.TypeLen != 1 || h.Type != textRecordType:
		return Header{}, fmt.Errorf("%w: record type length %d type 0x%02X",
			kiosk.ErrMalformedHeader, h.TypeLen, h.Type)
	case h.UTF16:
		return Header{}, fmt.Errorf("%w: UTF-16 text is not supported", kiosk.ErrMalformedHeader)
	case h.MessageLen < recordHeaderSize+1:
		return Header{}, fmt.Errorf("%w: message length %d", kiosk.ErrMalformedHeader, h.MessageLen)
	case h.PayloadLen != h.MessageLen-recordHeaderSize:
		return Header{}, fmt.Errorf("%w: payload length %d disagrees with message length %d",
			kiosk.ErrMalformedHeader, h.PayloadLen, h.MessageLen)
	case h.TextLen() < 0:
		return Header{}, fmt.Errorf("%w: language code length %d exceeds payload",
			kiosk.ErrMalformedHeader, h.LangLen)
	}
	return h, nil
}

// langCode returns the two letter ISO 639-1 code written for tag.
func langCode(tag language.Tag) (string, error) {
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("%w: %s", kiosk.ErrUnsupportedLang, tag)
	}
	code := base.String()
	if len(code) != 2 {
		return "", fmt.Errorf("%w: %q is not a two letter code", kiosk.ErrUnsupportedLang, code)
	}
	return code, nil
}

// parseLang maps a language code read from a tag to a language tag,
// language.Und when it does not parse.
func parseLang(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}
