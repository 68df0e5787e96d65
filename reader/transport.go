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

// Package reader drives a PN532 NFC controller and exposes the page-level
// NTAG operations the kiosk needs: presence polling, READ and WRITE.
package reader

import (
	"context"
	"time"
)

// Transport carries PN532 commands over UART, SPI or I2C. SendCommand
// returns the response data beginning with the response code (cmd+1).
type Transport interface {
	SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error)
	SetTimeout(timeout time.Duration) error
	Close() error
}

// TransportType names a physical link.
type TransportType string

const (
	TransportUART TransportType = "uart"
	TransportI2C  TransportType = "i2c"
	TransportSPI  TransportType = "spi"
)

// Valid reports whether t is a known link.
func (t TransportType) Valid() bool {
	switch t {
	case TransportUART, TransportI2C, TransportSPI:
		return true
	default:
		return false
	}
}
