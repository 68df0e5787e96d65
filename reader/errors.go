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

package reader

import (
	"errors"
	"fmt"
	"io"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/frame"
)

// Transport and device errors
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportClosed  = errors.New("transport is closed")
	ErrNoACK            = errors.New("no ACK received")
	ErrNACKReceived     = errors.New("NACK received")
	ErrFrameCorrupted   = errors.New("frame corrupted")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrInvalidResponse  = errors.New("invalid response format")
	ErrNotInitialized   = kiosk.ErrReaderNotStarted
)

// ErrorType classifies errors for retry decisions.
type ErrorType int

const (
	// ErrorTypeTransient may succeed if repeated.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent means the device or link is gone.
	ErrorTypePermanent
	// ErrorTypeTimeout is a transient error caused by a silent device.
	ErrorTypeTimeout
)

// TransportError wraps a link-level failure with the port it happened on.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError classifies err and wraps it.
func NewTransportError(op, port string, err error) *TransportError {
	te := &TransportError{Op: op, Port: port, Err: err}
	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrNoACK):
		te.Type, te.Retryable = ErrorTypeTimeout, true
	case errors.Is(err, ErrTransportClosed), errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
		te.Type = ErrorTypePermanent
	default:
		te.Type, te.Retryable = ErrorTypeTransient, true
	}
	return te
}

// PN532Error is a non-zero status byte returned by the chip.
type PN532Error struct {
	Command string
	Code    byte
}

func (e *PN532Error) Error() string {
	return fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.Code, statusMeaning(e.Code))
}

// IsTimeout reports whether the chip gave up waiting for the tag, which is
// what happens when the tag leaves the field mid-operation.
func (e *PN532Error) IsTimeout() bool {
	return e.Code == 0x01
}

// Status codes from the PN532 user manual, section 7.1.
func statusMeaning(code byte) string {
	switch code {
	case 0x01:
		return "timeout"
	case 0x02:
		return "CRC error"
	case 0x03:
		return "parity error"
	case 0x05:
		return "framing error"
	case 0x0A:
		return "RF field not activated in time"
	case 0x13:
		return "data format does not match"
	case 0x14:
		return "authentication error"
	case 0x27:
		return "wrong context for command"
	case 0x29:
		return "target released by initiator"
	case 0x2B:
		return "card disappeared"
	default:
		return "unknown error"
	}
}

// IsRetryable reports whether repeating the operation may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	var pe *PN532Error
	if errors.As(err, &pe) {
		return pe.IsTimeout()
	}
	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrNoACK),
		errors.Is(err, ErrNACKReceived),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, frame.ErrChecksumMismatch),
		errors.Is(err, frame.ErrLengthChecksum):
		return true
	default:
		return false
	}
}

// IsFatal reports whether the reader is gone and should be reopened.
func IsFatal(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}
	return errors.Is(err, ErrTransportClosed) || errors.Is(err, ErrDeviceNotFound)
}
