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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
)

// PN532 command codes
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

// NTAG21x commands sent through InDataExchange
const (
	ntagRead  = 0x30
	ntagWrite = 0xA2
)

const (
	samModeNormal     = 0x01
	rfCfgMaxRetries   = 0x05
	brTy106TypeA      = 0x00
	maxPage           = 0xFF
	minCommandTimeout = 100 * time.Millisecond

	// DefaultCommandTimeout bounds a command that is not a presence poll.
	DefaultCommandTimeout = time.Second
)

// FirmwareVersion is the answer to GetFirmwareVersion.
type FirmwareVersion struct {
	Version   string
	IC        byte
	ISO14443A bool
	ISO14443B bool
	ISO18092  bool
}

// Option configures a Device.
type Option func(*Device)

// WithRetry replaces the command retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(d *Device) { d.retry = cfg }
}

// WithCommandTimeout sets how long the transport waits for a response.
func WithCommandTimeout(d time.Duration) Option {
	return func(dev *Device) { dev.cmdTimeout = d }
}

// WithPassiveRetries sets how many times the chip retries target activation
// per InListPassiveTarget. Each retry costs roughly 150 ms without a tag.
func WithPassiveRetries(n byte) Option {
	return func(d *Device) { d.passiveRetries = n }
}

// Device is a PN532 with an NTAG21x in front of it. It implements
// kiosk.TagReader. Page operations address the target found by the last
// successful PollPresence.
type Device struct {
	transport      Transport
	fw             *FirmwareVersion
	uid            []byte
	retry          RetryConfig
	cmdTimeout     time.Duration
	mu             syncutil.Mutex
	target         byte
	passiveRetries byte
}

var _ kiosk.TagReader = (*Device)(nil)

// New wraps an open transport. Call Init before use.
func New(t Transport, opts ...Option) *Device {
	d := &Device{
		transport:      t,
		retry:          DefaultRetryConfig(),
		cmdTimeout:     DefaultCommandTimeout,
		passiveRetries: 0x01,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init checks the chip answers, puts the SAM in normal mode and bounds
// passive activation so presence polls return quickly.
func (d *Device) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.transport.SetTimeout(d.cmdTimeout); err != nil {
		return fmt.Errorf("set transport timeout: %w", err)
	}
	fw, err := d.firmwareVersion(ctx)
	if err != nil {
		return err
	}
	d.fw = fw
	slog.Debug("PN532 firmware", "ic", fmt.Sprintf("0x%02X", fw.IC), "version", fw.Version)

	res, err := d.send(ctx, cmdSAMConfiguration, []byte{samModeNormal, 0x00, 0x00})
	if err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}
	if len(res) == 0 || res[0] != cmdSAMConfiguration+1 {
		return fmt.Errorf("%w: SAM configuration returned %X", ErrInvalidResponse, res)
	}

	// MxRtyATR and MxRtyPSL stay at their defaults
	cfg := []byte{rfCfgMaxRetries, 0xFF, 0x01, d.passiveRetries}
	if _, err := d.send(ctx, cmdRFConfiguration, cfg); err != nil {
		// Older clones reject this; polls are slower but still work
		slog.Warn("could not bound passive activation retries", "error", err)
	}
	return nil
}

// Firmware returns the version read by Init, or nil.
func (d *Device) Firmware() *FirmwareVersion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fw
}

func (d *Device) firmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	res, err := d.send(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, fmt.Errorf("GetFirmwareVersion failed: %w", err)
	}
	if len(res) < 5 || res[0] != cmdGetFirmwareVersion+1 {
		return nil, fmt.Errorf("%w: firmware version %X", ErrInvalidResponse, res)
	}
	if res[1] != 0x32 {
		slog.Warn("controller is not a PN532", "ic", fmt.Sprintf("0x%02X", res[1]))
	}
	return &FirmwareVersion{
		IC:        res[1],
		Version:   fmt.Sprintf("%d.%d", res[2], res[3]),
		ISO14443A: res[4]&0x01 != 0,
		ISO14443B: res[4]&0x02 != 0,
		ISO18092:  res[4]&0x04 != 0,
	}, nil
}

// PollPresence lists one 106 kbps type A target. A tag that does not answer
// within timeout counts as absent.
func (d *Device) PollPresence(ctx context.Context, timeout time.Duration) (kiosk.TagHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fw == nil {
		return kiosk.TagHandle{}, ErrNotInitialized
	}
	d.target, d.uid = 0, nil

	pollCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		_ = d.transport.SetTimeout(max(timeout, minCommandTimeout))
		defer func() { _ = d.transport.SetTimeout(d.cmdTimeout) }()
	}

	res, err := d.transport.SendCommand(pollCtx, cmdInListPassiveTarget, []byte{0x01, brTy106TypeA})
	if err != nil {
		if ctx.Err() != nil {
			return kiosk.TagHandle{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTransportTimeout) {
			return kiosk.TagHandle{}, kiosk.ErrNoTagPresent
		}
		return kiosk.TagHandle{}, fmt.Errorf("InListPassiveTarget failed: %w", err)
	}

	uid, tg, err := parseTarget(res)
	if err != nil {
		return kiosk.TagHandle{}, err
	}
	d.target, d.uid = tg, uid
	return kiosk.TagHandle{UID: append([]byte(nil), uid...)}, nil
}

// parseTarget reads NbTg, Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID.
func parseTarget(res []byte) (uid []byte, tg byte, err error) {
	if len(res) < 2 || res[0] != cmdInListPassiveTarget+1 {
		return nil, 0, fmt.Errorf("%w: InListPassiveTarget returned %X", ErrInvalidResponse, res)
	}
	if res[1] == 0 {
		return nil, 0, kiosk.ErrNoTagPresent
	}
	if len(res) < 7 {
		return nil, 0, fmt.Errorf("%w: short target data %X", ErrInvalidResponse, res)
	}
	n := int(res[6])
	if n == 0 || len(res) < 7+n {
		return nil, 0, fmt.Errorf("%w: bad NFCID length %d", ErrInvalidResponse, n)
	}
	return res[7 : 7+n], res[2], nil
}

// ReadPage reads one page. NTAG READ returns four pages; the first is kept.
func (d *Device) ReadPage(ctx context.Context, page int) (kiosk.Page, error) {
	if page < 0 || page > maxPage {
		return kiosk.Page{}, fmt.Errorf("%w: %d", kiosk.ErrPageOutOfRange, page)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.exchange(ctx, []byte{ntagRead, byte(page)})
	if err != nil {
		return kiosk.Page{}, err
	}
	if len(data) < kiosk.PageSize {
		return kiosk.Page{}, fmt.Errorf("%w: READ returned %d bytes", ErrInvalidResponse, len(data))
	}
	var p kiosk.Page
	copy(p[:], data)
	return p, nil
}

// WritePage writes one page with the NTAG WRITE command.
func (d *Device) WritePage(ctx context.Context, page int, data kiosk.Page) error {
	if page < 0 || page > maxPage {
		return fmt.Errorf("%w: %d", kiosk.ErrPageOutOfRange, page)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.exchange(ctx, []byte{ntagWrite, byte(page), data[0], data[1], data[2], data[3]})
	return err
}

// Release deselects the current target.
func (d *Device) Release(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.target, d.uid = 0, nil
	res, err := d.send(ctx, cmdInRelease, []byte{0x00})
	if err != nil {
		return fmt.Errorf("InRelease failed: %w", err)
	}
	if len(res) < 2 || res[0] != cmdInRelease+1 {
		return fmt.Errorf("%w: InRelease returned %X", ErrInvalidResponse, res)
	}
	return nil
}

// Close closes the transport.
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// exchange sends an NTAG command to the current target. A chip timeout means
// the tag left the field and is reported as kiosk.ErrNoTagPresent.
func (d *Device) exchange(ctx context.Context, data []byte) ([]byte, error) {
	if d.target == 0 {
		return nil, kiosk.ErrNoTagPresent
	}
	res, err := d.send(ctx, cmdInDataExchange, append([]byte{d.target}, data...))
	if err != nil {
		return nil, fmt.Errorf("InDataExchange failed: %w", err)
	}
	if len(res) < 2 || res[0] != cmdInDataExchange+1 {
		return nil, fmt.Errorf("%w: InDataExchange returned %X", ErrInvalidResponse, res)
	}
	if res[1] != 0x00 {
		pe := &PN532Error{Command: "InDataExchange", Code: res[1]}
		if pe.IsTimeout() || pe.Code == 0x29 || pe.Code == 0x2B {
			return nil, fmt.Errorf("%w: %w", kiosk.ErrNoTagPresent, pe)
		}
		return nil, pe
	}
	return res[2:], nil
}

func (d *Device) send(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	var res []byte
	err := retry(ctx, d.retry, func() error {
		var err error
		res, err = d.transport.SendCommand(ctx, cmd, args)
		return err
	})
	return res, err
}
