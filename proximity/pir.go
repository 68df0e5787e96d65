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

// Package proximity reads the kiosk's passive infrared presence sensor.
package proximity

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PIR is a presence sensor whose output goes high while someone stands in
// front of the kiosk.
type PIR struct {
	pin gpio.PinIn
}

// Open configures the named GPIO (for example "GPIO23") as a pulled-down
// input.
func Open(name string) (*PIR, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	return New(pin)
}

// New wraps an existing pin.
func New(pin gpio.PinIn) (*PIR, error) {
	if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", pin, err)
	}
	slog.Debug("proximity sensor ready", "pin", pin.String())
	return &PIR{pin: pin}, nil
}

// Present implements kiosk.ProximitySensor.
func (p *PIR) Present() bool {
	return p.pin.Read() == gpio.High
}

// Always reports presence unconditionally. It stands in for the sensor on
// benches and kiosks built without one.
type Always struct{}

// Present always returns true.
func (Always) Present() bool { return true }
