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
	"testing"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulator_FirmwareAndSAM(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532(nil)
	tr := NewSimulatorTransport(sim)
	ctx := context.Background()

	resp, err := tr.SendCommand(ctx, CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, resp)

	resp, err = tr.SendCommand(ctx, CmdSAMConfiguration, []byte{0x01, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, resp)
	assert.True(t, sim.SAMConfigured())
	assert.Equal(t, 1, tr.Count(CmdSAMConfiguration))
}

func TestSimulator_ListAndExchange(t *testing.T) {
	t.Parallel()

	tag := NewVirtualNTAG213(nil)
	tag.SetBytes(4, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0x11})
	sim := NewVirtualPN532(tag)
	tr := NewSimulatorTransport(sim)
	ctx := context.Background()

	resp, err := tr.SendCommand(ctx, CmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	require.Len(t, resp, 7+len(TestNTAG213UID))
	assert.Equal(t, byte(0x4B), resp[0])
	assert.Equal(t, byte(0x01), resp[1])
	assert.Equal(t, TestNTAG213UID, resp[7:])

	resp, err = tr.SendCommand(ctx, CmdInDataExchange, []byte{0x01, 0x30, 0x04})
	require.NoError(t, err)
	require.Len(t, resp, 18)
	assert.Equal(t, []byte{0x41, StatusOK, 0xAA, 0xBB, 0xCC, 0xDD, 0x11}, resp[:7])

	resp, err = tr.SendCommand(ctx, CmdInDataExchange, []byte{0x01, 0xA2, 0x08, 1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, StatusOK}, resp)
	assert.Equal(t, []byte{1, 2, 3, 4}, tag.Bytes(8, 4))

	tag.Remove()
	resp, err = tr.SendCommand(ctx, CmdInDataExchange, []byte{0x01, 0x30, 0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, StatusTimeout}, resp)

	resp, err = tr.SendCommand(ctx, CmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x4B, 0x00}, resp)
}

func TestSimulator_Faults(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532(nil)
	tr := NewSimulatorTransport(sim)
	ctx := context.Background()

	sim.CorruptNextResponse()
	_, err := tr.SendCommand(ctx, CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, frame.ErrChecksumMismatch)

	sim.DropNextACK()
	_, err = tr.SendCommand(ctx, CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrNoResponse)

	_, err = tr.SendCommand(ctx, 0x60, nil)
	require.ErrorIs(t, err, frame.ErrApplication)

	sim.SetSilent(true)
	_, err = tr.SendCommand(ctx, CmdGetFirmwareVersion, nil)
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestSimulator_NackRetransmits(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532(nil)
	raw, err := frame.Build(CmdGetFirmwareVersion, nil)
	require.NoError(t, err)

	_, _ = sim.Write(raw)
	first := make([]byte, 64)
	n, _ := sim.Read(first)
	first = first[len(frame.AckFrame):n]

	_, _ = sim.Write(frame.NackFrame)
	again := make([]byte, 64)
	n, _ = sim.Read(again)
	assert.Equal(t, first, again[:n])
	assert.False(t, sim.Pending())
}

func TestSimulator_SplitWrites(t *testing.T) {
	t.Parallel()

	sim := NewVirtualPN532(NewVirtualNTAG213(nil))
	raw, err := frame.Build(CmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)

	for _, b := range raw {
		_, _ = sim.Write([]byte{b})
	}
	assert.True(t, sim.Pending())
	assert.Equal(t, []byte{CmdInListPassiveTarget}, sim.Commands)
}

func TestSimulator_WriteFaultStatus(t *testing.T) {
	t.Parallel()

	tag := NewVirtualNTAG213(nil)
	tag.FailWriteAt(9, nil)
	tr := NewSimulatorTransport(NewVirtualPN532(tag))
	ctx := context.Background()

	_, err := tr.SendCommand(ctx, CmdInListPassiveTarget, []byte{0x01, 0x00})
	require.NoError(t, err)
	resp, err := tr.SendCommand(ctx, CmdInDataExchange, []byte{0x01, 0xA2, 0x09, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, StatusMifareFraming}, resp)
	assert.Equal(t, kiosk.Page{}, tag.Memory[9])
}
