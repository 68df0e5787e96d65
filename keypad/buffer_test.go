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

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_AppendAndSnapshot(t *testing.T) {
	t.Parallel()

	b := NewBuffer()
	for _, c := range []byte("0123456789") {
		b.Append(c)
	}
	assert.Equal(t, "0123456789", b.Snapshot())
	assert.Equal(t, 10, b.Len())
	assert.Equal(t, uint64(10), b.Keystrokes())
}

func TestBuffer_OverflowClears(t *testing.T) {
	t.Parallel()

	b := NewBuffer()
	for range overflowAt {
		b.Append('1')
	}
	require.Equal(t, 19, b.Len())

	b.Append('9')
	assert.Equal(t, "9", b.Snapshot(), "append at the overflow mark starts a fresh entry")
	assert.LessOrEqual(t, b.Len(), Capacity)
}

func TestBuffer_Backspace(t *testing.T) {
	t.Parallel()

	b := NewBuffer()
	assert.False(t, b.Backspace(), "backspace on an empty buffer")
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(0), b.Keystrokes())

	b.Append('1')
	b.Append('2')
	assert.True(t, b.Backspace())
	assert.Equal(t, "1", b.Snapshot())
	assert.Equal(t, uint64(3), b.Keystrokes())
}

func TestBuffer_ClearKeepsKeystrokes(t *testing.T) {
	t.Parallel()

	b := NewBuffer()
	b.Append('4')
	b.Clear()
	assert.Empty(t, b.Snapshot())
	assert.Equal(t, uint64(1), b.Keystrokes())
}

func TestBuffer_ConcurrentUse(t *testing.T) {
	t.Parallel()

	b := NewBuffer()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				b.Append('7')
				_ = b.Snapshot()
				if b.Len() > 15 {
					b.Clear()
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, b.Len(), Capacity)
	assert.Equal(t, uint64(800), b.Keystrokes())
}
