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

package testing

import (
	"bytes"
	"context"
	"errors"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/frame"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
)

// PN532 commands the simulator answers.
const (
	CmdGetFirmwareVersion  = 0x02
	CmdSAMConfiguration    = 0x14
	CmdRFConfiguration     = 0x32
	CmdInDataExchange      = 0x40
	CmdInListPassiveTarget = 0x4A
	CmdInRelease           = 0x52
)

// InDataExchange status codes (PN532 user manual, table 13)
const (
	StatusOK             = 0x00
	StatusTimeout        = 0x01
	StatusMifareFraming  = 0x05
	StatusTargetReleased = 0x29
)

// NTAG commands carried by InDataExchange
const (
	ntagRead  = 0x30
	ntagWrite = 0xA2
)

// VirtualPN532 is a wire-level PN532 with at most one NTAG in its field. It
// implements io.ReadWriter: hosts write command frames and read back an ACK
// followed by the response frame.
type VirtualPN532 struct {
	tag          *VirtualTag
	lastResponse []byte
	rx           bytes.Buffer
	tx           bytes.Buffer
	Commands     []byte
	mu           syncutil.Mutex
	selected     bool
	samDone      bool
	corruptNext  bool
	dropNextACK  bool
	silent       bool
}

// NewVirtualPN532 returns a simulator holding tag, which may be nil.
func NewVirtualPN532(tag *VirtualTag) *VirtualPN532 {
	return &VirtualPN532{tag: tag}
}

// SetTag swaps the tag in the field.
func (v *VirtualPN532) SetTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = tag
	v.selected = false
}

// CorruptNextResponse flips the data checksum of the next response frame.
func (v *VirtualPN532) CorruptNextResponse() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corruptNext = true
}

// DropNextACK suppresses the ACK of the next command.
func (v *VirtualPN532) DropNextACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropNextACK = true
}

// SetSilent makes the chip ignore everything, like an unpowered module.
func (v *VirtualPN532) SetSilent(silent bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.silent = silent
}

// SAMConfigured reports whether SAMConfiguration was received.
func (v *VirtualPN532) SAMConfigured() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.samDone
}

// Pending reports whether response bytes are waiting to be read.
func (v *VirtualPN532) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tx.Len() > 0
}

// Discard drops queued response bytes, like flushing a serial input buffer.
func (v *VirtualPN532) Discard() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tx.Reset()
}

// Write feeds host bytes to the chip.
func (v *VirtualPN532) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.silent {
		return len(p), nil
	}
	v.rx.Write(p)
	v.drain()
	return len(p), nil
}

// Read returns queued chip bytes. It returns 0, nil when nothing is queued,
// like a serial port read that timed out.
func (v *VirtualPN532) Read(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tx.Len() == 0 {
		return 0, nil
	}
	n, _ := v.tx.Read(p)
	return n, nil
}

func (v *VirtualPN532) drain() {
	for v.rx.Len() > 0 {
		buf := v.rx.Bytes()
		switch {
		case frame.IsAck(buf):
			v.rx.Next(bytes.Index(buf, frame.AckFrame[1:]) + len(frame.AckFrame) - 1)
			continue
		case frame.IsNack(buf):
			v.rx.Next(bytes.Index(buf, frame.NackFrame[1:]) + len(frame.NackFrame) - 1)
			v.tx.Write(v.lastResponse)
			continue
		}

		data, n, err := frame.ParseCommand(buf)
		switch {
		case errors.Is(err, frame.ErrIncomplete):
			return
		case errors.Is(err, frame.ErrNoStartCode):
			// Keep a trailing zero, it may be the start of a start code
			v.rx.Next(max(len(buf)-1, 0))
			return
		case err != nil:
			v.rx.Next(max(n, 1))
			continue
		}
		v.rx.Next(n)
		if len(data) == 0 {
			v.reply(errorFrame)
			continue
		}
		v.handle(data[0], data[1:])
	}
}

func (v *VirtualPN532) handle(cmd byte, args []byte) {
	v.Commands = append(v.Commands, cmd)
	if v.dropNextACK {
		v.dropNextACK = false
	} else {
		v.tx.Write(frame.AckFrame)
	}

	var resp []byte
	switch cmd {
	case CmdGetFirmwareVersion:
		// PN532, firmware 1.6, ISO14443A/B and ISO18092
		resp = []byte{0x32, 0x01, 0x06, 0x07}
	case CmdSAMConfiguration:
		v.samDone = true
	case CmdRFConfiguration:
	case CmdInListPassiveTarget:
		resp = v.listTarget()
	case CmdInDataExchange:
		resp = v.exchange(args)
	case CmdInRelease:
		v.selected = false
		resp = []byte{StatusOK}
	default:
		v.reply(errorFrame)
		return
	}

	raw, err := frame.BuildResponse(cmd+1, resp)
	if err != nil {
		v.reply(errorFrame)
		return
	}
	if v.corruptNext {
		// Only this transmission is damaged; a NACK gets the good frame.
		v.corruptNext = false
		bad := append([]byte(nil), raw...)
		bad[len(bad)-2] ^= 0xFF
		v.lastResponse = raw
		v.tx.Write(bad)
		return
	}
	v.reply(raw)
}

var errorFrame = []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, frame.ErrorTFI, 0x81, 0x00}

func (v *VirtualPN532) reply(raw []byte) {
	v.lastResponse = raw
	v.tx.Write(raw)
}

// listTarget answers InListPassiveTarget for 106 kbps type A: NbTg, Tg,
// SENS_RES, SEL_RES, NFCID length, NFCID.
func (v *VirtualPN532) listTarget() []byte {
	if v.tag == nil {
		return []byte{0x00}
	}
	handle, err := v.tag.PollPresence(context.Background(), 0)
	if err != nil {
		v.selected = false
		return []byte{0x00}
	}
	v.selected = true
	out := []byte{0x01, 0x01, 0x00, 0x44, 0x00, byte(len(handle.UID))}
	return append(out, handle.UID...)
}

func (v *VirtualPN532) exchange(args []byte) []byte {
	if len(args) < 3 || !v.selected || v.tag == nil {
		return []byte{StatusTargetReleased}
	}
	ctx := context.Background()
	page := int(args[2])

	switch args[1] {
	case ntagRead:
		first, err := v.tag.ReadPage(ctx, page)
		if err != nil {
			return []byte{tagStatus(err)}
		}
		out := append([]byte{StatusOK}, first[:]...)
		// READ returns four pages; the chip wraps, zeros are close enough
		rest := v.tag.Bytes(page+1, 3*kiosk.PageSize)
		out = append(out, rest...)
		for len(out) < 1+4*kiosk.PageSize {
			out = append(out, 0x00)
		}
		return out
	case ntagWrite:
		if len(args) < 7 {
			return []byte{StatusMifareFraming}
		}
		var p kiosk.Page
		copy(p[:], args[3:7])
		if err := v.tag.WritePage(ctx, page, p); err != nil {
			return []byte{tagStatus(err)}
		}
		return []byte{StatusOK}
	default:
		return []byte{StatusMifareFraming}
	}
}

func tagStatus(err error) byte {
	if errors.Is(err, kiosk.ErrNoTagPresent) {
		return StatusTimeout
	}
	return StatusMifareFraming
}
