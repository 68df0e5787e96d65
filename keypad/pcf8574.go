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
	"context"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultPCF8574Addr is the expander address with A0..A2 tied low.
const DefaultPCF8574Addr = 0x20

// Pin patterns: rows on P4..P7, columns on P0..P3. A pressed key pulls its
// row and column lines low.
const (
	rowsHigh = 0xF0
	colsHigh = 0x0F
	allHigh  = 0xFF
)

var layout = [4][4]byte{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Matrix scans a 4x4 keypad wired to a PCF8574 I/O expander.
type Matrix struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// OpenMatrix opens busName (for example "/dev/i2c-1" or "1") and releases
// all expander pins.
func OpenMatrix(busName string, addr uint16) (*Matrix, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(100 * physic.KiloHertz)

	m, err := NewMatrix(bus, addr)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	m.bus = bus
	return m, nil
}

// NewMatrix uses an already opened bus.
func NewMatrix(bus i2c.Bus, addr uint16) (*Matrix, error) {
	m := &Matrix{dev: &i2c.Dev{Addr: addr, Bus: bus}}
	if err := m.set(allHigh); err != nil {
		return nil, fmt.Errorf("release PCF8574 pins: %w", err)
	}
	return m, nil
}

// Scan implements Scanner.
func (m *Matrix) Scan(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rowBits, err := m.probe(rowsHigh)
	if err != nil {
		return 0, err
	}
	colBits, err := m.probe(colsHigh)
	if err != nil {
		return 0, err
	}

	row := lineIndex(^rowBits >> 4)
	col := lineIndex(^colBits & 0x0F)
	if row < 0 || col < 0 {
		return 0, nil
	}
	return layout[row][col], nil
}

// Close releases the bus if OpenMatrix opened it.
func (m *Matrix) Close() error {
	if m.bus == nil {
		return nil
	}
	if err := m.bus.Close(); err != nil {
		return fmt.Errorf("close I2C bus: %w", err)
	}
	return nil
}

func (m *Matrix) set(pins byte) error {
	if err := m.dev.Tx([]byte{pins}, nil); err != nil {
		return fmt.Errorf("PCF8574 write: %w", err)
	}
	return nil
}

func (m *Matrix) probe(pins byte) (byte, error) {
	if err := m.set(pins); err != nil {
		return 0, err
	}
	var r [1]byte
	if err := m.dev.Tx(nil, r[:]); err != nil {
		return 0, fmt.Errorf("PCF8574 read: %w", err)
	}
	return r[0], nil
}

// lineIndex maps a single low line to its index. Zero or several lines
// (ghosting, two keys) yield -1.
func lineIndex(bits byte) int {
	switch bits & 0x0F {
	case 0x01:
		return 0
	case 0x02:
		return 1
	case 0x04:
		return 2
	case 0x08:
		return 3
	default:
		return -1
	}
}
