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

// Package uart talks to a PN532 over a serial port (HSU mode).
package uart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-kiosk/internal/frame"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
	"github.com/ZaparooProject/go-kiosk/reader"
	"go.bug.st/serial"
)

const (
	baudRate = 115200

	// readSlice is the serial read timeout. Reads return early with no data
	// so the deadline and ctx are checked often.
	readSlice = 20 * time.Millisecond

	// idle sleep for ports that return immediately when empty
	idleWait = 2 * time.Millisecond

	maxNACKRetries = 3

	// Bytes kept while hunting for the ACK; anything older is line noise.
	maxPreAck = 64
)

// The chip sleeps after power-up in HSU mode. A long preamble with 0x55
// wakes it, see PN532 user manual 7.2.11.
var wakeSequence = []byte{
	0x55, 0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Transport implements reader.Transport over a serial port.
type Transport struct {
	port    serial.Port
	name    string
	timeout time.Duration
	mu      syncutil.Mutex
	closed  bool
}

var _ reader.Transport = (*Transport)(nil)

// Open opens name at 115200 8N1.
func Open(name string) (*Transport, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, reader.NewTransportError("open", name,
			fmt.Errorf("%w: %w", reader.ErrDeviceNotFound, err))
	}
	if err := port.SetReadTimeout(readSlice); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return New(port, name), nil
}

// New wraps an open port. name is only used in errors.
func New(port serial.Port, name string) *Transport {
	return &Transport{port: port, name: name, timeout: reader.DefaultCommandTimeout}
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

	// A response to an abandoned command may still be queued
	_ = t.port.ResetInputBuffer()

	if err := t.write(wakeSequence); err != nil {
		return nil, err
	}
	if err := t.write(raw); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.timeout)
	rest, err := t.waitAck(ctx, deadline)
	if err != nil {
		return nil, err
	}
	res, err := t.receive(ctx, deadline, rest)
	if err != nil {
		return nil, err
	}
	// Tell the chip we have the response
	if err := t.write(frame.AckFrame); err != nil {
		return nil, err
	}
	return res, nil
}

// waitAck reads until an ACK frame shows up and returns whatever followed it.
func (t *Transport) waitAck(ctx context.Context, deadline time.Time) ([]byte, error) {
	var buf []byte
	for {
		if i := bytes.Index(buf, frame.AckFrame); i >= 0 {
			return buf[i+len(frame.AckFrame):], nil
		}
		if len(buf) > maxPreAck {
			buf = buf[len(buf)-len(frame.AckFrame):]
		}
		chunk, err := t.read(ctx, deadline)
		if errors.Is(err, reader.ErrTransportTimeout) {
			return nil, reader.NewTransportError("waitAck", t.name, reader.ErrNoACK)
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
}

// receive reads one response frame, asking for a retransmission when it
// arrives damaged.
func (t *Transport) receive(ctx context.Context, deadline time.Time, buf []byte) ([]byte, error) {
	for nacks := 0; ; {
		data, _, err := frame.Parse(buf)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoStartCode):
		case errors.Is(err, frame.ErrChecksumMismatch), errors.Is(err, frame.ErrLengthChecksum):
			if nacks++; nacks > maxNACKRetries {
				return nil, reader.NewTransportError("receive", t.name,
					fmt.Errorf("%w: %w", reader.ErrFrameCorrupted, err))
			}
			if err := t.write(frame.NackFrame); err != nil {
				return nil, err
			}
			buf = buf[:0]
		default:
			return nil, fmt.Errorf("UART receive: %w", err)
		}

		chunk, err := t.read(ctx, deadline)
		if errors.Is(err, reader.ErrTransportTimeout) {
			return nil, reader.NewTransportError("receive", t.name, err)
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
}

// read returns the next bytes from the port, ctx.Err() or
// reader.ErrTransportTimeout once deadline passes.
func (t *Transport) read(ctx context.Context, deadline time.Time) ([]byte, error) {
	var b [64]byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, reader.ErrTransportTimeout
		}
		n, err := t.port.Read(b[:])
		if err != nil {
			return nil, reader.NewTransportError("read", t.name, err)
		}
		if n > 0 {
			return append([]byte(nil), b[:n]...), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(idleWait):
		}
	}
}

func (t *Transport) write(p []byte) error {
	n, err := t.port.Write(p)
	if err != nil {
		return reader.NewTransportError("write", t.name, err)
	}
	if n != len(p) {
		return reader.NewTransportError("write", t.name,
			fmt.Errorf("short write: %d of %d bytes", n, len(p)))
	}
	if err := t.port.Drain(); err != nil {
		return reader.NewTransportError("drain", t.name, err)
	}
	return nil
}

// SetTimeout bounds each command from write to response.
func (t *Transport) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid UART timeout %v", d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = d
	return nil
}

// Close closes the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}
