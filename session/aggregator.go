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

package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
	"github.com/ZaparooProject/go-kiosk/keypad"
	"github.com/ZaparooProject/go-kiosk/ntag"
)

// Keypad is the part of *keypad.Keypad the machines use.
type Keypad interface {
	Buffer() *keypad.Buffer
	Submitted() *syncutil.Notifier
	AdminSubmitted() *syncutil.Notifier
	RouteToAdmin()
}

// Source says where an identity came from.
type Source int

const (
	SourceNone Source = iota
	SourceTag
	SourceKeypad
)

func (s Source) String() string {
	switch s {
	case SourceTag:
		return "tag"
	case SourceKeypad:
		return "keypad"
	default:
		return "none"
	}
}

// Acquisition is the outcome of one identity poll.
type Acquisition struct {
	// Err is set when a tag was present but its content could not be read
	// as an identity. Reader faults are not reported here.
	Err  error
	Text string
	// KeypadLen is the buffer occupancy at submission.
	KeypadLen int
	Source    Source
}

// Aggregator merges the tag reader and the keypad into a single identity
// source. A tag wins over a keypad submission seen in the same poll.
type Aggregator struct {
	reader  kiosk.TagReader
	keypad  Keypad
	timeout time.Duration
}

// NewAggregator creates an Aggregator. reader may be nil on kiosks
// without an NFC module.
func NewAggregator(reader kiosk.TagReader, kp Keypad, pollTimeout time.Duration) *Aggregator {
	return &Aggregator{reader: reader, keypad: kp, timeout: pollTimeout}
}

// Acquire polls both sources once. The keypad submission is consumed even
// when a tag takes precedence, so it cannot fire later against a stale
// buffer.
func (a *Aggregator) Acquire(ctx context.Context) Acquisition {
	submitted := a.keypad.Submitted().TryTake()

	if a.reader != nil {
		text, err := ntag.ReadIdentity(ctx, a.reader, a.timeout)
		switch {
		case err == nil:
			return Acquisition{Source: SourceTag, Text: text}
		case kiosk.IsCodecRejection(err):
			return Acquisition{Source: SourceTag, Err: err}
		case !errors.Is(err, kiosk.ErrNoTagPresent) && ctx.Err() == nil:
			// A reader fault says nothing about the visitor. Keep serving
			// the keypad.
			slog.Warn("tag poll failed", "error", err)
		}
	}

	if submitted {
		buf := a.keypad.Buffer()
		return Acquisition{Source: SourceKeypad, Text: buf.Snapshot(), KeypadLen: buf.Len()}
	}
	return Acquisition{}
}
