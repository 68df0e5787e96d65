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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/audio"
	"github.com/ZaparooProject/go-kiosk/directory"
	"github.com/ZaparooProject/go-kiosk/display"
	"github.com/ZaparooProject/go-kiosk/internal/restart"
	"github.com/ZaparooProject/go-kiosk/internal/telemetry"
	"github.com/ZaparooProject/go-kiosk/internal/timesync"
	"github.com/ZaparooProject/go-kiosk/keypad"
	"github.com/ZaparooProject/go-kiosk/proximity"
	"github.com/ZaparooProject/go-kiosk/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the kiosk until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}
}

// closers are released in reverse order on exit and before a restart.
type closers []func() error

func (c *closers) add(f func() error) { *c = append(*c, f) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			slog.Warn("release resource", "error", err)
		}
	}
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	if cfg.Directory.BaseURL == "" {
		return errors.New("directory base URL is not configured (directory.base-url)")
	}
	slog.Info("starting kiosk", "version", version, "kiosk", cfg.Kiosk.ID, "location", cfg.Kiosk.Location)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: "go-kiosk",
		Version:     version,
		KioskID:     cfg.Kiosk.ID,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("flush traces", "error", err)
		}
	}()

	var res closers
	defer func() { res.close() }()

	client, err := a.openDirectory(&res)
	if err != nil {
		return err
	}

	deps := session.Deps{
		Directory:    client,
		Connectivity: client,
		Proximity:    proximity.Always{},
	}
	if cfg.Kiosk.ID != "" {
		deps.Status = client
	} else {
		slog.Warn("kiosk id not set, status messages and heartbeats are disabled")
	}

	// A kiosk without a working reader still takes keypad entries.
	if dev, err := openReader(ctx, cfg.Reader); err != nil {
		slog.Error("reader unavailable, continuing with keypad only", "error", err)
	} else {
		res.add(dev.Close)
		deps.Reader = dev
	}

	restarter := restart.New(func() {
		res.close()
		_ = a.sessionLog.Close()
	})

	var scanner keypad.Scanner
	if cfg.Keypad.Bus != "" {
		m, err := keypad.OpenMatrix(cfg.Keypad.Bus, cfg.Keypad.Address)
		if err != nil {
			return err
		}
		res.add(m.Close)
		scanner = m
	}
	kp := keypad.New(scanner, restarter, keypad.Config{
		ScanInterval: cfg.Keypad.ScanInterval,
		Debounce:     cfg.Keypad.Debounce,
	})
	deps.Keypad = kp

	if cfg.Proximity.Pin != "" {
		pir, err := proximity.Open(cfg.Proximity.Pin)
		if err != nil {
			return err
		}
		deps.Proximity = pir
	}

	var announcers kiosk.Announcers
	if cfg.Display.Screen {
		announcers = append(announcers, display.NewScreen(os.Stdout, cfg.Kiosk.Location))
	}
	if cfg.Display.Strip {
		deps.Indicator = display.NewIndicator(display.NewTermStrip(os.Stdout), display.DefaultRefresh)
	}
	var buzzer *audio.Buzzer
	if cfg.Buzzer.Pin != "" {
		if buzzer, err = audio.Open(cfg.Buzzer.Pin); err != nil {
			return err
		}
		announcers = append(announcers, buzzer)
	}
	deps.Announcer = announcers

	if !cfg.Clock.Disabled {
		deps.ClockCheck = timesync.New(cfg.Clock.Pool, cfg.Clock.Threshold).Check
	}

	machine, err := session.New(cfg.Session(), deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return machine.Run(ctx) })
	g.Go(func() error { return machine.Admin().Run(ctx) })
	if scanner != nil {
		g.Go(func() error { return kp.Run(ctx) })
	}
	if buzzer != nil {
		g.Go(func() error { return buzzer.Run(ctx) })
	}
	if cfg.Directory.Heartbeat > 0 && cfg.Kiosk.ID != "" {
		g.Go(func() error {
			client.RunHeartbeat(ctx, cfg.Directory.Heartbeat)
			return nil
		})
	}

	err = g.Wait()
	slog.Info("kiosk stopped", "state", machine.State())
	return err
}

func (a *app) openDirectory(res *closers) (*directory.Client, error) {
	cfg := a.cfg
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := directory.Options{
		BaseURL:   cfg.Directory.BaseURL,
		AuthToken: cfg.Directory.AuthToken,
		Timeout:   cfg.Directory.Timeout,
		TimeZone:  loc,
		Kiosk: directory.KioskInfo{
			ID:              cfg.Kiosk.ID,
			Name:            cfg.Kiosk.Name,
			Location:        cfg.Kiosk.Location,
			FirmwareVersion: version,
		},
	}
	if cfg.Directory.LedgerPath != "" {
		ledger, err := directory.OpenLedger(cfg.Directory.LedgerPath)
		if err != nil {
			return nil, err
		}
		res.add(ledger.Close)
		opts.Ledger = ledger
	}

	client, err := directory.New(opts)
	if err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}
	return client, nil
}
