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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-kiosk/internal/frame"
)

// ErrNoResponse is returned when the simulated chip stays silent.
var ErrNoResponse = errors.New("simulator: no response")

// SimulatorTransport drives a VirtualPN532 through its wire protocol and
// satisfies the reader's Transport interface.
type SimulatorTransport struct {
	sim     *VirtualPN532
	Log     []CommandLogEntry
	timeout time.Duration
	closed  bool
}

// CommandLogEntry records one command sent through the transport.
type CommandLogEntry struct {
	Args []byte
	Cmd  byte
}

// NewSimulatorTransport wraps sim.
func NewSimulatorTransport(sim *VirtualPN532) *SimulatorTransport {
	return &SimulatorTransport{sim: sim, timeout: time.Second}
}

// SendCommand frames cmd, waits for the ACK and returns the response data
// starting with the response code.
func (t *SimulatorTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.closed {
		return nil, errors.New("simulator: transport closed")
	}
	t.Log = append(t.Log, CommandLogEntry{Cmd: cmd, Args: append([]byte(nil), args...)})

	raw, err := frame.Build(cmd, args)
	if err != nil {
		return nil, err
	}
	if _, err := t.sim.Write(raw); err != nil {
		return nil, fmt.Errorf("simulator write: %w", err)
	}

	buf := make([]byte, 512)
	n, _ := t.sim.Read(buf)
	resp := buf[:n]
	if !frame.IsAck(resp) {
		return nil, fmt.Errorf("%w: missing ACK", ErrNoResponse)
	}
	resp = resp[len(frame.AckFrame):]
	if len(resp) == 0 {
		return nil, ErrNoResponse
	}

	data, _, err := frame.Parse(resp)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SetTimeout records the timeout; the simulator answers immediately.
func (t *SimulatorTransport) SetTimeout(d time.Duration) error {
	t.timeout = d
	return nil
}

// Timeout returns the last timeout set.
func (t *SimulatorTransport) Timeout() time.Duration { return t.timeout }

// Close marks the transport closed.
func (t *SimulatorTransport) Close() error {
	t.closed = true
	return nil
}

// Count returns how many times cmd was sent.
func (t *SimulatorTransport) Count(cmd byte) int {
	n := 0
	for _, e := range t.Log {
		if e.Cmd == cmd {
			n++
		}
	}
	return n
}
