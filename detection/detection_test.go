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

package detection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortLikely(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		port Port
		want bool
	}{
		{"ch340 bridge", Port{VIDPID: "1a86:7523"}, true},
		{"ftdi bridge", Port{VIDPID: "0403:6001"}, true},
		{"nfc product string", Port{VIDPID: "1234:0001", Product: "PN532 NFC Module"}, true},
		{"unknown usb device", Port{VIDPID: "1234:0001", Product: "GPS receiver"}, false},
		{"built-in uart", Port{Path: "/dev/ttyAMA0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.port.Likely())
		})
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	ports := []Port{
		{Path: "/dev/ttyUSB0", VIDPID: "1A86:7523"},
		{Path: "/dev/ttyUSB1", VIDPID: "DEAD:BEEF"},
		{Path: "/dev/ttyS0"},
		{Path: "/dev/ttyAMA0"},
	}
	got := Filter(ports, []string{"dead:beef"}, []string{"/dev/../dev/ttyS0"})
	require.Len(t, got, 2)
	assert.Equal(t, "/dev/ttyUSB0", got[0].Path)
	assert.Equal(t, "/dev/ttyAMA0", got[1].Path)
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	assert.False(t, IsPathIgnored("", []string{"/dev/ttyUSB0"}))
	assert.False(t, IsPathIgnored("/dev/ttyUSB0", nil))
	assert.False(t, IsPathIgnored("/dev/ttyUSB0", []string{""}))
	assert.True(t, IsPathIgnored("/dev/ttyUSB0/", []string{"/dev/ttyUSB0"}))
	assert.True(t, IsPathIgnored("COM3", []string{"com3"}))
	assert.False(t, IsPathIgnored("/dev/ttyUSB0", []string{"/dev/ttyUSB1"}))
}

type probeLog struct {
	mu     sync.Mutex
	paths  []string
	answer map[string]string
}

func (p *probeLog) probe(_ context.Context, path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	if fw, ok := p.answer[path]; ok {
		return fw, nil
	}
	return "", errors.New("no ACK")
}

func staticPorts(ports ...Port) func() ([]Port, error) {
	return func() ([]Port, error) { return ports, nil }
}

func TestDetect_ProbesLikelyPortsFirst(t *testing.T) {
	t.Parallel()

	log := &probeLog{answer: map[string]string{"/dev/ttyUSB0": "1.6", "/dev/ttyAMA0": "1.6"}}
	devices, err := Detect(context.Background(), Options{
		Ports: staticPorts(
			Port{Path: "/dev/ttyAMA0"},
			Port{Path: "/dev/ttyS0"},
			Port{Path: "/dev/ttyUSB0", VIDPID: "10C4:EA60"},
		),
		Probe: log.probe,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyAMA0", "/dev/ttyS0"}, log.paths)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Port.Path)
	assert.Equal(t, "1.6", devices[0].Firmware)
}

func TestDetect_NeverProbesBlockedPorts(t *testing.T) {
	t.Parallel()

	log := &probeLog{}
	_, err := Detect(context.Background(), Options{
		Ports:       staticPorts(Port{Path: "/dev/ttyUSB0", VIDPID: "1A86:7523"}, Port{Path: "/dev/ttyS0"}),
		Probe:       log.probe,
		Blocklist:   []string{"1a86:7523"},
		IgnorePaths: []string{"/dev/ttyS0"},
	})
	require.ErrorIs(t, err, ErrNoDevicesFound)
	assert.Empty(t, log.paths)
}

func TestDetect_EnumerationFailure(t *testing.T) {
	t.Parallel()

	_, err := Detect(context.Background(), Options{
		Ports: func() ([]Port, error) { return nil, errors.New("permission denied") },
		Probe: (&probeLog{}).probe,
	})
	require.ErrorContains(t, err, "enumerate serial ports")
}

func TestDetect_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	log := &probeLog{}
	_, err := Detect(ctx, Options{Ports: staticPorts(Port{Path: "/dev/ttyUSB0"}), Probe: log.probe})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log.paths)
}

func TestFirst(t *testing.T) {
	t.Parallel()

	log := &probeLog{answer: map[string]string{"/dev/ttyACM0": "1.6"}}
	path, err := First(context.Background(), Options{
		Ports: staticPorts(Port{Path: "/dev/ttyACM0"}),
		Probe: log.probe,
	})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", path)
}
