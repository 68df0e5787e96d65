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

// Package testing provides in-memory stand-ins for kiosk hardware.
package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
)

// NTAG21x geometry
const (
	NTAG213AreaSize = 0x12 // 144 bytes of user memory
	NTAG215AreaSize = 0x3E // 496 bytes
	ccPage          = 3
)

// TestNTAG213UID is a sample NTAG213 UID.
var TestNTAG213UID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}

// ErrInjected is returned by operations failed on purpose.
var ErrInjected = errors.New("injected fault")

// VirtualTag is a simulated NTAG21x tag sitting on a reader. It implements
// kiosk.TagReader and is safe for concurrent use.
type VirtualTag struct {
	failRead  map[int]error
	failWrite map[int]error
	UID       []byte
	Memory    []kiosk.Page
	Writes    []int
	Reads     []int
	Polls     int
	mu        sync.Mutex
	Present   bool
}

// NewVirtualNTAG213 creates a blank, NDEF formatted NTAG213.
func NewVirtualNTAG213(uid []byte) *VirtualTag {
	return NewVirtualNTAG(uid, NTAG213AreaSize)
}

// NewVirtualNTAG creates a blank, NDEF formatted NTAG21x whose data area is
// areaSize*8 bytes, followed by five configuration pages.
func NewVirtualNTAG(uid []byte, areaSize byte) *VirtualTag {
	if uid == nil {
		uid = TestNTAG213UID
	}

	pages := 4 + int(areaSize)*8/kiosk.PageSize + 5
	tag := &VirtualTag{
		UID:       uid,
		Memory:    make([]kiosk.Page, pages),
		Present:   true,
		failRead:  make(map[int]error),
		failWrite: make(map[int]error),
	}
	copy(tag.Memory[0][:3], uid)
	if len(uid) > 3 {
		copy(tag.Memory[1][:], uid[3:])
	}
	tag.Memory[ccPage] = kiosk.Page{0xE1, 0x10, areaSize, 0x00}
	// Empty NDEF message, as shipped by most vendors
	tag.Memory[4] = kiosk.Page{0x03, 0x00, 0xFE, 0x00}
	return tag
}

// SetCC overwrites the capability container page.
func (v *VirtualTag) SetCC(cc kiosk.Page) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Memory[ccPage] = cc
}

// SetBytes writes raw bytes starting at page, spanning pages as needed.
func (v *VirtualTag) SetBytes(page int, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, b := range data {
		p := page + i/kiosk.PageSize
		if p >= len(v.Memory) {
			return
		}
		v.Memory[p][i%kiosk.PageSize] = b
	}
}

// Bytes returns a copy of n bytes starting at page.
func (v *VirtualTag) Bytes(page, n int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]byte, 0, n)
	for p := page; p < len(v.Memory) && len(out) < n; p++ {
		out = append(out, v.Memory[p][:]...)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FailReadAt makes reads of page fail with err (ErrInjected if nil).
func (v *VirtualTag) FailReadAt(page int, err error) {
	if err == nil {
		err = ErrInjected
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failRead[page] = err
}

// FailWriteAt makes writes of page fail with err (ErrInjected if nil).
func (v *VirtualTag) FailWriteAt(page int, err error) {
	if err == nil {
		err = ErrInjected
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failWrite[page] = err
}

// ClearFaults removes all injected faults.
func (v *VirtualTag) ClearFaults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.failRead)
	clear(v.failWrite)
}

// Remove takes the tag out of the field.
func (v *VirtualTag) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = false
}

// Insert puts the tag back in the field.
func (v *VirtualTag) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = true
}

// ResetLog forgets recorded reads, writes and polls.
func (v *VirtualTag) ResetLog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Reads = nil
	v.Writes = nil
	v.Polls = 0
}

// WriteCount returns the number of page writes attempted.
func (v *VirtualTag) WriteCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.Writes)
}

// ReadLog returns a copy of the pages read so far.
func (v *VirtualTag) ReadLog() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.Reads...)
}

// PollPresence reports the tag if it is in the field.
func (v *VirtualTag) PollPresence(ctx context.Context, _ time.Duration) (kiosk.TagHandle, error) {
	if err := ctx.Err(); err != nil {
		return kiosk.TagHandle{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Polls++
	if !v.Present {
		return kiosk.TagHandle{}, kiosk.ErrNoTagPresent
	}
	return kiosk.TagHandle{UID: append([]byte(nil), v.UID...)}, nil
}

// ReadPage returns one page.
func (v *VirtualTag) ReadPage(_ context.Context, page int) (kiosk.Page, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Reads = append(v.Reads, page)
	if !v.Present {
		return kiosk.Page{}, kiosk.ErrNoTagPresent
	}
	if err, ok := v.failRead[page]; ok {
		return kiosk.Page{}, err
	}
	if page < 0 || page >= len(v.Memory) {
		return kiosk.Page{}, fmt.Errorf("%w: %d", kiosk.ErrPageOutOfRange, page)
	}
	return v.Memory[page], nil
}

// WritePage stores one page. Pages 0 to 2 hold the UID and lock bytes and
// are read-only, as on the real chip.
func (v *VirtualTag) WritePage(_ context.Context, page int, data kiosk.Page) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Writes = append(v.Writes, page)
	if !v.Present {
		return kiosk.ErrNoTagPresent
	}
	if err, ok := v.failWrite[page]; ok {
		return err
	}
	if page < ccPage || page >= len(v.Memory) {
		return fmt.Errorf("%w: %d", kiosk.ErrPageOutOfRange, page)
	}
	v.Memory[page] = data
	return nil
}
