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

package ntag

import (
	"context"
	"testing"

	kiosk "github.com/ZaparooProject/go-kiosk"
	testutil "github.com/ZaparooProject/go-kiosk/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpTag_IdentityRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tag := testutil.NewVirtualNTAG213(nil)
	require.NoError(t, WriteIdentity(ctx, tag, "1234567890", 144))

	d, err := DumpTag(ctx, tag, pollTimeout)
	require.NoError(t, err)
	require.NoError(t, d.ParseErr)

	assert.Len(t, d.Pages, 40)
	assert.Len(t, d.DataArea(), 144)
	require.Len(t, d.Records, 1)
	assert.Equal(t, "T", d.Records[0].Type)
	assert.Equal(t, "1234567890", d.Records[0].Text)
	assert.Contains(t, d.Hex(), "  3: E1 10 12 00 |....|")
	assert.Contains(t, d.Hex(), "  7: 65 6E 31 32 |en12|")
}

func TestDumpTag_BlankTag(t *testing.T) {
	t.Parallel()

	d, err := DumpTag(context.Background(), testutil.NewVirtualNTAG213(nil), pollTimeout)
	require.NoError(t, err)
	require.NoError(t, d.ParseErr)
	assert.Empty(t, d.Records)
}

func TestDumpTag_ReadFailure(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	tag.FailReadAt(20, nil)
	_, err := DumpTag(context.Background(), tag, pollTimeout)
	require.ErrorIs(t, err, kiosk.ErrPageRead)
}

func TestParseDataArea(t *testing.T) {
	t.Parallel()

	t.Run("no message", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDataArea(make([]byte, 16))
		require.ErrorIs(t, err, ErrNoMessage)
	})

	t.Run("terminator first", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDataArea([]byte{0xFE, 0x00})
		require.ErrorIs(t, err, ErrNoMessage)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDataArea([]byte{0x01, 0x03, 0xA0, 0x10, 0x44, 0x03, 0x20, 0xD1})
		require.ErrorIs(t, err, ErrTruncatedMessage)
	})

	t.Run("skips lock control TLV", func(t *testing.T) {
		t.Parallel()
		hdr := NewTextHeader(2, 3).Encode()
		area := append(hdr[:], 'e', 'n', 'a', 'b', 'c', 0x00, 0xFE)
		recs, err := ParseDataArea(area)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "abc", recs[0].Text)
	})
}

func TestWriteURI(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tag := testutil.NewVirtualNTAG213(nil)
	require.NoError(t, WriteURI(ctx, tag, "https://example.com/help", pollTimeout))

	d, err := DumpTag(ctx, tag, pollTimeout)
	require.NoError(t, err)
	require.NoError(t, d.ParseErr)
	require.Len(t, d.Records, 1)
	assert.Equal(t, "U", d.Records[0].Type)
	assert.Equal(t, "https://example.com/help", d.Records[0].URI)

	_, err = ReadIdentity(ctx, tag, pollTimeout)
	require.ErrorIs(t, err, kiosk.ErrMalformedHeader, "URI record is not an identity")
}
