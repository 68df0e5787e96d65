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

package i2c

import (
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/ZaparooProject/go-kiosk/internal/testing"
	"github.com/ZaparooProject/go-kiosk/ntag"
	"github.com/ZaparooProject/go-kiosk/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// fakeBus answers reads with the PN532 status byte followed by whatever
// the simulator has queued.
type fakeBus struct {
	sim  *testutil.VirtualPN532
	err  error
	addr uint16
	txs  int
}

func (*fakeBus) String() string { return "fake-i2c" }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.txs++
	if b.err != nil {
		return b.err
	}
	if addr != b.addr {
		return errors.New("no device at address")
	}
	if len(w) > 0 {
		if _, err := b.sim.Write(w); err != nil {
			return err //nolint:wrapcheck // test double
		}
	}
	if len(r) > 0 {
		clear(r)
		if b.sim.Pending() {
			r[0] = statusReady
			_, _ = b.sim.Read(r[1:])
		}
	}
	return nil
}

func (*fakeBus) SetSpeed(physic.Frequency) error { return nil }

var _ i2c.Bus = (*fakeBus)(nil)

func newTestTransport(t *testing.T, tag *testutil.VirtualTag) (*Transport, *testutil.VirtualPN532, *fakeBus) {
	t.Helper()
	sim := testutil.NewVirtualPN532(tag)
	bus := &fakeBus{sim: sim, addr: DefaultAddr}
	tr := New(bus, DefaultAddr, "fake-i2c")
	require.NoError(t, tr.SetTimeout(100*time.Millisecond))
	return tr, sim, bus
}

func TestI2C_GetFirmwareVersion(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t, nil)
	res, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)
}

func TestI2C_CorruptResponseIsRetransmitted(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newTestTransport(t, nil)
	sim.CorruptNextResponse()
	res, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), res[0])
}

func TestI2C_Failures(t *testing.T) {
	t.Parallel()

	t.Run("missing ACK", func(t *testing.T) {
		t.Parallel()
		tr, sim, _ := newTestTransport(t, nil)
		sim.DropNextACK()
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, reader.ErrNoACK)
	})

	t.Run("never ready", func(t *testing.T) {
		t.Parallel()
		tr, sim, _ := newTestTransport(t, nil)
		sim.SetSilent(true)
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, reader.ErrNoACK)
		assert.True(t, reader.IsRetryable(err))
	})

	t.Run("wrong address", func(t *testing.T) {
		t.Parallel()
		sim := testutil.NewVirtualPN532(nil)
		tr := New(&fakeBus{sim: sim, addr: DefaultAddr}, 0x25, "fake-i2c")
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		var te *reader.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "write", te.Op)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		t.Parallel()
		tr, sim, _ := newTestTransport(t, nil)
		require.NoError(t, tr.SetTimeout(time.Second))
		sim.SetSilent(true)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := tr.SendCommand(ctx, testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		tr, _, bus := newTestTransport(t, nil)
		require.NoError(t, tr.Close())
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, reader.ErrTransportClosed)
		assert.Zero(t, bus.txs)
	})
}

func TestParsePath(t *testing.T) {
	t.Parallel()

	bus, addr, err := parsePath("/dev/i2c-1")
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-1", bus)
	assert.Equal(t, uint16(DefaultAddr), addr)

	bus, addr, err = parsePath("/dev/i2c-3:0x48")
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-3", bus)
	assert.Equal(t, uint16(0x48), addr)

	_, _, err = parsePath("/dev/i2c-1:zz")
	require.Error(t, err)
	_, _, err = parsePath("/dev/i2c-1:0x90")
	require.Error(t, err)
}

func TestI2C_ReadWriteThroughReader(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	tr, _, _ := newTestTransport(t, tag)
	d := reader.New(tr)
	ctx := context.Background()
	require.NoError(t, d.Init(ctx))

	require.NoError(t, ntag.Provision(ctx, d, "1112223334", 100*time.Millisecond))
	id, err := ntag.ReadIdentity(ctx, d, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "1112223334", id)
}
