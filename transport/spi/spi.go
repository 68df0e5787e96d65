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

// Package spi talks to a PN532 on an SPI bus through periph.io.
//
// The chip shifts bits LSB first. periph ports only do MSB first, so every
// byte is bit-reversed on the way in and out.
package spi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/ZaparooProject/go-kiosk/internal/frame"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
	"github.com/ZaparooProject/go-kiosk/reader"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// First byte of every SPI transaction
const (
	opDataWrite  = 0x01
	opStatusRead = 0x02
	opDataRead   = 0x03
)

const (
	statusReady = 0x01
	clockFreq   = 1 * physic.MegaHertz

	// preamble, start code, LEN and LCS
	headerLen = 5

	pollInterval   = time.Millisecond
	maxNACKRetries = 3
)

// conn is the part of spi.Conn the transport uses.
type conn interface {
	Tx(w, r []byte) error
}

// Transport implements reader.Transport over SPI.
type Transport struct {
	conn    conn
	port    spi.PortCloser
	name    string
	timeout time.Duration
	mu      syncutil.Mutex
	closed  bool
}

var _ reader.Transport = (*Transport)(nil)

// Open opens an SPI port such as "/dev/spidev0.0" in mode 0 at 1 MHz.
func Open(name string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, reader.NewTransportError("open", name,
			fmt.Errorf("%w: %w", reader.ErrDeviceNotFound, err))
	}
	c, err := port.Connect(clockFreq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	t := New(c, name)
	t.port = port
	// A dummy byte wakes the chip from power down
	time.Sleep(time.Millisecond)
	_ = c.Tx([]byte{0x00}, nil)
	time.Sleep(time.Millisecond)
	return t, nil
}

// New uses an already connected port. Close will not close it.
func New(c conn, name string) *Transport {
	return &Transport{conn: c, name: name, timeout: reader.DefaultCommandTimeout}
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
	if err := t.waitReady(ctx, deadline); err != nil {
		if errors.Is(err, reader.ErrTransportTimeout) {
			return nil, reader.NewTransportError("waitAck", t.name, reader.ErrNoACK)
		}
		return nil, err
	}
	ack, err := t.read(len(frame.AckFrame))
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(ack, frame.NackFrame):
		return nil, reader.NewTransportError("waitAck", t.name, reader.ErrNACKReceived)
	case !bytes.Equal(ack, frame.AckFrame):
		return nil, reader.NewTransportError("waitAck", t.name,
			fmt.Errorf("%w: got % X", reader.ErrNoACK, ack))
	}

	for nacks := 0; ; nacks++ {
		if err := t.waitReady(ctx, deadline); err != nil {
			if errors.Is(err, reader.ErrTransportTimeout) {
				return nil, reader.NewTransportError("receive", t.name, err)
			}
			return nil, err
		}
		data, err := t.receive()
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
		default:
			return nil, err
		}
	}
}

// receive reads the frame header, then the body it announces.
func (t *Transport) receive() ([]byte, error) {
	header, err := t.read(headerLen)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(header, []byte{frame.Preamble, frame.StartCode1, frame.StartCode2}) {
		return nil, reader.NewTransportError("receive", t.name,
			fmt.Errorf("%w: header % X", reader.ErrFrameCorrupted, header))
	}
	if header[3]+header[4] != 0 {
		return nil, frame.ErrLengthChecksum
	}
	// data, DCS and postamble
	body, err := t.read(int(header[3]) + 2)
	if err != nil {
		return nil, err
	}
	data, _, err := frame.Parse(append(header, body...))
	if err != nil && !errors.Is(err, frame.ErrChecksumMismatch) {
		return nil, fmt.Errorf("SPI receive: %w", err)
	}
	return data, err //nolint:wrapcheck // checked by the caller for a NACK
}

func (t *Transport) waitReady(ctx context.Context, deadline time.Time) error {
	w := []byte{reverse(opStatusRead), 0x00}
	r := make([]byte, len(w))
	for {
		if err := t.conn.Tx(w, r); err != nil {
			return reader.NewTransportError("status", t.name, err)
		}
		if reverse(r[1])&statusReady != 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			return reader.ErrTransportTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (t *Transport) read(n int) ([]byte, error) {
	w := make([]byte, n+1)
	w[0] = reverse(opDataRead)
	r := make([]byte, n+1)
	if err := t.conn.Tx(w, r); err != nil {
		return nil, reader.NewTransportError("read", t.name, err)
	}
	return reverseAll(r[1:]), nil
}

func (t *Transport) write(p []byte) error {
	w := append([]byte{opDataWrite}, p...)
	if err := t.conn.Tx(reverseAll(w), nil); err != nil {
		return reader.NewTransportError("write", t.name, err)
	}
	return nil
}

func reverse(b byte) byte { return bits.Reverse8(b) }

func reverseAll(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = bits.Reverse8(b)
	}
	return out
}

// SetTimeout bounds each command from write to response.
func (t *Transport) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid SPI timeout %v", d)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = d
	return nil
}

// Close releases the port if Open opened it.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("SPI close failed: %w", err)
	}
	return nil
}
