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

package keypad

import "github.com/ZaparooProject/go-kiosk/internal/syncutil"

const (
	// Capacity is the number of characters the buffer holds.
	Capacity = 21

	// An append at this occupancy clears the buffer first.
	overflowAt = Capacity - 2
)

// Buffer is the bounded keypad entry buffer. The keypad task writes it; the
// session and admin tasks read snapshots and clear it.
type Buffer struct {
	elems      [Capacity]byte
	n          int
	keystrokes uint64
	mu         syncutil.Mutex
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds c to the buffer, discarding the current entry first when it
// has reached the overflow mark.
func (b *Buffer) Append(c byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n >= overflowAt {
		b.clearLocked()
	}
	b.elems[b.n] = c
	b.n++
	b.keystrokes++
}

// Backspace removes the last character. It reports false when the buffer
// was already empty.
func (b *Buffer) Backspace() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n == 0 {
		return false
	}
	b.n--
	b.elems[b.n] = 0
	b.keystrokes++
	return true
}

// Clear empties the buffer. The keystroke counter is left alone.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

func (b *Buffer) clearLocked() {
	clear(b.elems[:])
	b.n = 0
}

// Snapshot returns the current entry.
func (b *Buffer) Snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.elems[:b.n])
}

// Len returns the occupancy.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Keystrokes counts edits since the buffer was created. Callers compare two
// readings to see whether the user typed in between.
func (b *Buffer) Keystrokes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keystrokes
}
