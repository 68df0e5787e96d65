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

package uart

import (
	"context"
	"errors"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	testutil "github.com/ZaparooProject/go-kiosk/internal/testing"
	"github.com/ZaparooProject/go-kiosk/ntag"
	"github.com/ZaparooProject/go-kiosk/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

var errPortClosed = errors.New("port is closed")

// mockPort wires the PN532 simulator to the serial.Port interface. chunk
// limits how many bytes one Read returns, to mimic a slow line.
type mockPort struct {
	sim    *testutil.VirtualPN532
	chunk  int
	writes int
	closed bool
}

func newMockPort(sim *testutil.VirtualPN532) *mockPort {
	return &mockPort{sim: sim}
}

func (*mockPort) SetMode(*serial.Mode) error { return nil }

func (m *mockPort) Read(p []byte) (int, error) {
	if m.closed {
		return 0, errPortClosed
	}
	if m.chunk > 0 && len(p) > m.chunk {
		p = p[:m.chunk]
	}
	return m.sim.Read(p) //nolint:wrapcheck // simulator never fails
}

func (m *mockPort) Write(p []byte) (int, error) {
	if m.closed {
		return 0, errPortClosed
	}
	m.writes++
	return m.sim.Write(p) //nolint:wrapcheck // simulator never fails
}

func (*mockPort) Drain() error { return nil }

func (m *mockPort) ResetInputBuffer() error {
	m.sim.Discard()
	return nil
}

func (*mockPort) ResetOutputBuffer() error { return nil }

func (*mockPort) SetDTR(bool) error { return nil }

func (*mockPort) SetRTS(bool) error { return nil }

func (*mockPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (*mockPort) SetReadTimeout(time.Duration) error { return nil }

func (m *mockPort) Close() error {
	m.closed = true
	return nil
}

func (*mockPort) Break(time.Duration) error { return nil }

var _ serial.Port = (*mockPort)(nil)

func newTestTransport(t *testing.T, tag *testutil.VirtualTag) (*Transport, *testutil.VirtualPN532, *mockPort) {
	t.Helper()
	sim := testutil.NewVirtualPN532(tag)
	port := newMockPort(sim)
	tr := New(port, "mock://uart")
	require.NoError(t, tr.SetTimeout(200*time.Millisecond))
	return tr, sim, port
}

func TestUART_GetFirmwareVersion(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t, nil)
	res, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)
}

func TestUART_SlowLine(t *testing.T) {
	t.Parallel()

	tr, _, port := newTestTransport(t, nil)
	port.chunk = 1
	res, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), res[0])
}

func TestUART_StaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newTestTransport(t, nil)
	// Leftover from a command whose caller gave up
	_, err := sim.Write([]byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00})
	require.NoError(t, err)
	require.True(t, sim.Pending())

	res, err := tr.SendCommand(context.Background(), testutil.CmdSAMConfiguration, []byte{0x01, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, res)
}

func TestUART_CorruptResponseIsRetransmitted(t *testing.T) {
	t.Parallel()

	tr, sim, _ := newTestTransport(t, nil)
	sim.CorruptNextResponse()
	res, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x32, 0x01, 0x06, 0x07}, res)
}

func TestUART_Failures(t *testing.T) {
	t.Parallel()

	t.Run("missing ACK", func(t *testing.T) {
		t.Parallel()
		tr, sim, _ := newTestTransport(t, nil)
		sim.DropNextACK()
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, reader.ErrNoACK)
		assert.True(t, reader.IsRetryable(err))
	})

	t.Run("silent chip", func(t *testing.T) {
		t.Parallel()
		tr, sim, _ := newTestTransport(t, nil)
		sim.SetSilent(true)
		start := time.Now()
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, reader.ErrNoACK)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("application error", func(t *testing.T) {
		t.Parallel()
		tr, _, _ := newTestTransport(t, nil)
		_, err := tr.SendCommand(context.Background(), 0x60, nil)
		require.Error(t, err)
		assert.False(t, reader.IsRetryable(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		tr, _, port := newTestTransport(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := tr.SendCommand(ctx, testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, port.writes)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		tr, _, port := newTestTransport(t, nil)
		require.NoError(t, tr.Close())
		require.NoError(t, tr.Close())
		assert.True(t, port.closed)
		_, err := tr.SendCommand(context.Background(), testutil.CmdGetFirmwareVersion, nil)
		require.ErrorIs(t, err, reader.ErrTransportClosed)
		assert.True(t, reader.IsFatal(err))
	})

	t.Run("bad timeout", func(t *testing.T) {
		t.Parallel()
		tr, _, _ := newTestTransport(t, nil)
		require.Error(t, tr.SetTimeout(0))
	})
}

func TestUART_ProvisionThroughReader(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	tr, _, port := newTestTransport(t, tag)
	port.chunk = 7
	d := reader.New(tr)
	ctx := context.Background()
	require.NoError(t, d.Init(ctx))

	require.NoError(t, ntag.Provision(ctx, d, "8675309000", 100*time.Millisecond))
	id, err := ntag.ReadIdentity(ctx, d, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "8675309000", id)

	tag.Remove()
	_, err = ntag.ReadIdentity(ctx, d, 100*time.Millisecond)
	require.ErrorIs(t, err, kiosk.ErrNoTagPresent)
}
