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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ZaparooProject/go-kiosk/config"
	"github.com/ZaparooProject/go-kiosk/detection"
	"github.com/ZaparooProject/go-kiosk/reader"
	"github.com/ZaparooProject/go-kiosk/transport/i2c"
	"github.com/ZaparooProject/go-kiosk/transport/spi"
	"github.com/ZaparooProject/go-kiosk/transport/uart"
)

func openTransport(cfg config.Reader) (reader.Transport, error) {
	switch cfg.Transport {
	case reader.TransportUART:
		t, err := uart.Open(cfg.Device)
		if err != nil {
			return nil, err
		}
		return t, nil
	case reader.TransportSPI:
		t, err := spi.Open(cfg.Device)
		if err != nil {
			return nil, err
		}
		return t, nil
	case reader.TransportI2C:
		t, err := i2c.Open(cfg.Device)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported reader transport %q", cfg.Transport)
	}
}

// openReader opens the configured link and wakes the PN532.
func openReader(ctx context.Context, cfg config.Reader) (*reader.Device, error) {
	if cfg.Device == config.AutoDevice {
		path, err := detection.First(ctx, detectOptions(cfg))
		if err != nil {
			return nil, fmt.Errorf("detect reader: %w", err)
		}
		cfg.Device = path
	}
	dev, err := initWithRetry(ctx, initAttempts, func(ctx context.Context) (*reader.Device, error) {
		t, err := openTransport(cfg)
		if err != nil {
			return nil, fmt.Errorf("open %s reader at %s: %w", cfg.Transport, cfg.Device, err)
		}
		dev := reader.New(t, reader.WithCommandTimeout(cfg.CommandTimeout))
		if err := dev.Init(ctx); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("initialize reader: %w", err)
		}
		return dev, nil
	})
	if err != nil {
		return nil, err
	}
	if fw := dev.Firmware(); fw != nil {
		slog.Info("reader ready", "transport", cfg.Transport, "device", cfg.Device, "firmware", fw.Version)
	}
	return dev, nil
}

// A PN532 left mid-frame by a previous run often misses the first wake-up.
const initAttempts = 2

// initWithRetry calls open until it succeeds, the error is fatal or the
// attempts run out.
func initWithRetry(
	ctx context.Context, attempts int, open func(context.Context) (*reader.Device, error),
) (*reader.Device, error) {
	var err error
	for i := range max(attempts, 1) {
		var dev *reader.Device
		dev, err = open(ctx)
		if err == nil {
			return dev, nil
		}
		if reader.IsFatal(err) || ctx.Err() != nil {
			return nil, err
		}
		slog.Debug("reader init failed", "attempt", i+1, "error", err)
	}
	return nil, err
}

func detectOptions(cfg config.Reader) detection.Options {
	return detection.Options{Blocklist: cfg.Blocklist, IgnorePaths: cfg.IgnorePaths}
}
