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

// Package frame encodes and decodes PN532 normal information frames.
//
//	00 00 FF LEN LCS TFI PD0..PDn DCS 00
//
// LEN counts TFI plus the data bytes, LCS makes LEN+LCS zero, and DCS makes
// the sum of TFI, data and DCS zero.
package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame identifiers
const (
	HostToPn532 = 0xD4
	Pn532ToHost = 0xD5
	ErrorTFI    = 0x7F
)

const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00

	// MaxDataLength is the longest TFI plus data a normal frame carries.
	MaxDataLength = 0xFF
	// Overhead is the number of bytes a frame adds around TFI and data.
	Overhead = 7
)

var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

// Frame errors
var (
	ErrTooLong          = errors.New("frame: data too long for a normal frame")
	ErrNoStartCode      = errors.New("frame: no start code")
	ErrIncomplete       = errors.New("frame: incomplete")
	ErrLengthChecksum   = errors.New("frame: length checksum mismatch")
	ErrChecksumMismatch = errors.New("frame: data checksum mismatch")
	ErrUnexpectedTFI    = errors.New("frame: unexpected frame identifier")
	ErrApplication      = errors.New("frame: PN532 application error")
	ErrNACK             = errors.New("frame: NACK")
)

// Checksum returns the byte sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Build returns the host frame carrying cmd and args.
func Build(cmd byte, args []byte) ([]byte, error) {
	return encode(HostToPn532, cmd, args)
}

// BuildResponse returns the PN532 frame carrying response code code and
// data. It is the inverse of Parse and exists for simulators.
func BuildResponse(code byte, data []byte) ([]byte, error) {
	return encode(Pn532ToHost, code, data)
}

func encode(tfi, code byte, data []byte) ([]byte, error) {
	n := 2 + len(data)
	if n > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLong, n)
	}

	out := make([]byte, 0, n+Overhead)
	out = append(out, Preamble, StartCode1, StartCode2, byte(n), byte(-n))
	out = append(out, tfi, code)
	out = append(out, data...)
	dcs := -(Checksum(data) + tfi + code)
	return append(out, dcs, Postamble), nil
}

// IsAck reports whether buf starts with an ACK frame, ignoring extra
// leading preamble bytes.
func IsAck(buf []byte) bool {
	return bytes.HasPrefix(trimPreamble(buf), AckFrame[1:])
}

// IsNack reports whether buf starts with a NACK frame.
func IsNack(buf []byte) bool {
	return bytes.HasPrefix(trimPreamble(buf), NackFrame[1:])
}

// trimPreamble drops leading zeros but one, so buf lines up with 00 FF.
func trimPreamble(buf []byte) []byte {
	i := 0
	for i+1 < len(buf) && buf[i] == 0x00 && buf[i+1] == 0x00 {
		i++
	}
	return buf[i:]
}

// Parse decodes the first response frame in buf. It returns the data after
// the TFI, starting with the response code, and the number of bytes of buf
// the frame used. ErrIncomplete means more bytes are needed.
func Parse(buf []byte) (data []byte, n int, err error) {
	return parse(buf, Pn532ToHost)
}

// ParseCommand decodes the first host frame in buf, returning the command
// code followed by its arguments.
func ParseCommand(buf []byte) (data []byte, n int, err error) {
	return parse(buf, HostToPn532)
}

func parse(buf []byte, tfi byte) (data []byte, n int, err error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 {
		return nil, 0, ErrNoStartCode
	}
	off := start + 2
	if off+2 > len(buf) {
		return nil, 0, ErrIncomplete
	}

	length, lcs := buf[off], buf[off+1]
	switch {
	case length == 0x00 && lcs == 0xFF:
		return nil, min(off+3, len(buf)), fmt.Errorf("%w: got ACK", ErrUnexpectedTFI)
	case length == 0xFF && lcs == 0x00:
		return nil, min(off+3, len(buf)), ErrNACK
	case length+lcs != 0:
		return nil, off + 2, ErrLengthChecksum
	case length == 0:
		return nil, off + 2, fmt.Errorf("%w: empty frame", ErrUnexpectedTFI)
	}

	body := off + 2
	end := body + int(length)
	if end+1 > len(buf) {
		return nil, 0, ErrIncomplete
	}
	if Checksum(buf[body:end])+buf[end] != 0 {
		return nil, end + 1, ErrChecksumMismatch
	}
	n = min(end+2, len(buf))

	switch buf[body] {
	case tfi:
	case ErrorTFI:
		return nil, n, ErrApplication
	default:
		return nil, n, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, buf[body])
	}

	data = make([]byte, end-body-1)
	copy(data, buf[body+1:end])
	return data, n, nil
}
