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

// Package i2c talks to a PN532 on an I2C bus through periph.io.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-kiosk/internal/frame"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
	"github.com/ZaparooProject/go-kiosk/reader"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddr is the 7-bit address. The datasheet quotes 0x48, the
	// 8-bit write address.
	DefaultAddr = 0x24

	statusReady = 0x01
	busSpeed    = 400 * physic.KiloHertz

	// Every read restarts at the head of the chip's output buffer, so a
	// response has to be read in one transaction sized for the largest frame.
	maxRead = frame.MaxDataLength + frame.Overhead

	pollInterval   = time.Millisecond
	maxNACKRetries = 3
)

// Transport implements reader.Transport over I2C.
type Transport struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser
	name    string
	timeout time.Duration
	mu      syncutil.Mutex
	closed  bool
}

var _ reader.Transport = (*Transport)(nil)

// Open opens path, which is a bus name like "/dev/i2c-1" with an optional
// ":0x24" address suffix.
func Open(path string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	busName, addr, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, reader.NewTransportError("open", path,
			fmt.Errorf("%w: %w", reader.ErrDeviceNotFound, err))
	}
	_ = bus.SetSpeed(busSpeed)

	t := New(bus, addr, path)
	t.bus = bus
	return t, nil
}

// New uses an already opened bus. Close will not close it.
func New(bus i2c.Bus, addr uint16, name string) *Transport {
	return &Transport{
		dev:     &i2c.Dev{Addr: addr, Bus: bus},
		name:    name,
		timeout: reader.DefaultCommandTimeout,
	}
}

func parsePath(path string) (string, uint16, error) {
	busName, suffix, ok := strings.Cut(path, ":")
	if !ok {
		return busName, DefaultAddr, nil
	}
	var addr uint16
	if _, err := fmt.Sscanf(suffix, "0x%x", &addr); err != nil || addr > 0x7F {
		return "", 0, fmt.Errorf("invalid I2C address %q", suffix)
	}
	return busName, addr, nil
}

// SendCommand implements reader.Transport.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, reader.NewTransportError("SendCommand", t.name, reader.ErrTransportClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := frame.Build(cmd, args)
	if err != nil {
		return nil, err
	}
	if err := t.write(raw); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.timeout)
	ack, err := t.read(ctx, deadline, len(frame.AckFrame))
	if errors.Is(err, reader.ErrTransportTimeout) {
		return nil, reader.NewTransportError("waitAck", t.name, reader.ErrNoACK)
	}
	if err != nil {
		return nil, err
	}
	if !frame.IsAck(ack) {
		return nil, reader.NewTransportError("waitAck", t.name,
			fmt.Errorf("%w: got % X", reader.ErrNoACK, ack))
	}

	for nacks := 0; ; nacks++ {
		buf, err := t.read(ctx, deadline, maxRead)
		if errors.Is(err, reader.ErrTransportTimeout) {
			return nil, reader.NewTransportError("receive", t.name, err)
		}
		if err != nil {
			return nil, err
		}
		data, _, err := frame.Parse(buf)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, frame.ErrChecksumMismatch), errors.Is(err, frame.ErrLengthChecksum):
			if nacks >= maxNACKRetries {
				return nil, reader.NewTransportError("receive", t.name,
					fmt.Errorf("%w: %w", reader.ErrFrameCorrupted, err))
			}
			if err := t.write(frame.NackFrame); err != nil {
				return nil, err
			}
		case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoStartCode):
			return nil, reader.NewTransportError("receive", t.name,
				fmt.Errorf("%w: %w", reader.ErrFrameCorrupted, err))
		default:
			return nil, fmt.Errorf("I2C receive: %w", err)
		}
	}
}

// read waits for the ready status and then reads n bytes in the same
// transaction.
func (t *Transport) read(ctx context.Context, deadline time.Time, n int) ([]byte, error) {
	buf := make([]byte, n+1)
	for {
		if err := t.dev.Tx(nil, buf); err != nil {
			return nil, reader.NewTransportError("read", t.name, err)
		}
		if buf[0]&statusReady != 0 {
			return buf[1:], nil
		}
		if !time.Now().Before(deadline) {
			return nil, reader.ErrTransportTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (t *Transport) write(p []byte) error {
	if err := t.dev.Tx(p, nil); err != nil {
		return reader.NewTransportError("write", t.name, err)
	}
	return nil
}

// SetTimeout bounds each command from write to response.
func (t *Transport) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid I2C timeout %v", d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = d
	return nil
}

// Close releases the bus if Open opened it. Leaving the file descriptor
// open across reopen cycles has wedged the bus on some boards.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.bus == nil {
		return nil
	}
	if err := t.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}
