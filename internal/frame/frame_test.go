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

package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var firmwareResponse = []byte{
	0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8, 0x00,
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0), Checksum(nil))
	assert.Equal(t, byte(0x30), Checksum([]byte{0x10, 0x20}))
	assert.Equal(t, byte(0x00), Checksum([]byte{0xFF, 0x01}))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	got, err := Build(0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, got)

	got, err = Build(0x40, []byte{0x01, 0x30, 0x07})
	require.NoError(t, err)
	assert.Equal(t, byte(5), got[3])
	assert.Equal(t, byte(0), got[3]+got[4])
	assert.Equal(t, byte(0), Checksum(got[5:len(got)-1]))

	_, err = Build(0x40, make([]byte, 254))
	require.ErrorIs(t, err, ErrTooLong)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		buf     []byte
		want    []byte
		wantN   int
	}{
		{
			name:  "firmware version",
			buf:   firmwareResponse,
			want:  []byte{0x03, 0x32, 0x01, 0x06, 0x07},
			wantN: 13,
		},
		{
			name:  "leading noise",
			buf:   append([]byte{0x55, 0x00}, firmwareResponse...),
			want:  []byte{0x03, 0x32, 0x01, 0x06, 0x07},
			wantN: 15,
		},
		{
			name:    "no start code",
			buf:     []byte{0x01, 0x02, 0x03},
			wantErr: ErrNoStartCode,
		},
		{
			name:    "short",
			buf:     firmwareResponse[:9],
			wantErr: ErrIncomplete,
		},
		{
			name:    "bad length checksum",
			buf:     []byte{0x00, 0x00, 0xFF, 0x06, 0xFB, 0xD5, 0x03},
			wantErr: ErrLengthChecksum,
		},
		{
			name:    "bad data checksum",
			buf:     []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD5, 0x03, 0x00, 0x00},
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "error frame",
			buf:     []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00},
			wantErr: ErrApplication,
		},
		{
			name:    "host frame",
			buf:     []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00},
			wantErr: ErrUnexpectedTFI,
		},
		{
			name:    "nack",
			buf:     NackFrame,
			wantErr: ErrNACK,
		},
		{
			name:    "ack",
			buf:     AckFrame,
			wantErr: ErrUnexpectedTFI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, n, err := Parse(tt.buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
			assert.Equal(t, tt.wantN, n)
		})
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	raw, err := Build(0x40, []byte{0x01, 0x30, 0x04})
	require.NoError(t, err)
	data, n, err := ParseCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40, 0x01, 0x30, 0x04}, data)
	assert.Equal(t, len(raw), n)

	_, _, err = ParseCommand(firmwareResponse)
	require.ErrorIs(t, err, ErrUnexpectedTFI)
}

func TestAckNack(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAck(AckFrame))
	assert.True(t, IsAck(append([]byte{0x00, 0x00}, AckFrame...)))
	assert.False(t, IsAck(NackFrame))
	assert.True(t, IsNack(NackFrame))
	assert.False(t, IsAck(firmwareResponse))
}

// Run with: go test -fuzz=FuzzParse -fuzztime=30s ./internal/frame/
func FuzzParse(f *testing.F) {
	f.Add(firmwareResponse)
	f.Add(AckFrame)
	f.Add(NackFrame)
	f.Add([]byte{})
	f.Add([]byte{0x00, 0xFF})
	f.Add([]byte{0x00, 0xFF, 0x00, 0x00, 0x00})
	f.Add([]byte{0x00, 0x00, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, buf []byte) {
		data, n, err := Parse(buf)
		if n < 0 || n > len(buf) {
			t.Fatalf("consumed %d of %d bytes", n, len(buf))
		}
		if err == nil && !bytes.Contains(buf, data) {
			t.Fatalf("data %X not taken from input", data)
		}
	})
}

func FuzzBuildParse(f *testing.F) {
	f.Add(byte(0x02), []byte{})
	f.Add(byte(0x40), []byte{0x01, 0x30, 0x04})

	f.Fuzz(func(t *testing.T, cmd byte, args []byte) {
		raw, err := BuildResponse(cmd, args)
		if err != nil {
			return
		}
		data, _, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if data[0] != cmd || !bytes.Equal(data[1:], args) {
			t.Fatalf("got %X", data)
		}
	})
}
