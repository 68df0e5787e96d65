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

// Package detection finds a PN532 on the serial ports of the kiosk when
// the reader device is configured as "auto".
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ZaparooProject/go-kiosk/reader"
	"github.com/ZaparooProject/go-kiosk/transport/uart"
	"go.bug.st/serial/enumerator"
)

// DefaultProbeTimeout bounds the firmware query sent to each port.
const DefaultProbeTimeout = 2 * time.Second

// ErrNoDevicesFound is returned when no port answered as a PN532.
var ErrNoDevicesFound = errors.New("no PN532 devices found")

// Port is a serial port and whatever USB metadata the OS reports for it.
type Port struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
}

// Likely reports whether p looks like a PN532 board before probing it:
// a USB-serial bridge commonly fitted to those boards, or a product string
// naming NFC.
func (p Port) Likely() bool {
	if slices.Contains(knownBridges, strings.ToUpper(p.VIDPID)) {
		return true
	}
	product := strings.ToLower(p.Product)
	for _, kw := range []string{"pn532", "nfc", "rfid"} {
		if strings.Contains(product, kw) {
			return true
		}
	}
	return false
}

var knownBridges = []string{
	"067B:2303", // Prolific PL2303
	"0403:6001", // FTDI FT232
	"10C4:EA60", // Silicon Labs CP210x
	"1A86:7523", // QinHeng CH340
}

// Device is a port that answered the firmware query.
type Device struct {
	Port     Port
	Firmware string
}

// ProbeFunc queries the PN532 firmware version on path.
type ProbeFunc func(ctx context.Context, path string) (string, error)

// Options control the search.
type Options struct {
	// Ports lists candidate ports. Defaults to the OS serial port list.
	Ports func() ([]Port, error)
	// Probe defaults to a firmware query over UART.
	Probe ProbeFunc
	// Blocklist holds VID:PID pairs that must never be probed.
	Blocklist []string
	// IgnorePaths are skipped, for example a console on /dev/ttyS0.
	IgnorePaths  []string
	ProbeTimeout time.Duration
}

// Detect probes every candidate port, likely PN532 bridges first, and
// returns those that answered.
func Detect(ctx context.Context, opts Options) ([]Device, error) {
	if opts.Ports == nil {
		opts.Ports = SerialPorts
	}
	if opts.Probe == nil {
		opts.Probe = ProbeUART
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}

	ports, err := opts.Ports()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	candidates := Filter(ports, opts.Blocklist, opts.IgnorePaths)
	slices.SortStableFunc(candidates, func(a, b Port) int {
		switch {
		case a.Likely() == b.Likely():
			return 0
		case a.Likely():
			return -1
		default:
			return 1
		}
	})

	var found []Device
	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		pctx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
		fw, err := opts.Probe(pctx, p.Path)
		cancel()
		if err != nil {
			slog.Debug("port did not answer as PN532", "path", p.Path, "error", err)
			continue
		}
		found = append(found, Device{Port: p, Firmware: fw})
	}
	if len(found) == 0 {
		return nil, ErrNoDevicesFound
	}
	return found, nil
}

// First returns the path of the first PN532 found.
func First(ctx context.Context, opts Options) (string, error) {
	devices, err := Detect(ctx, opts)
	if err != nil {
		return "", err
	}
	slog.Info("detected PN532", "path", devices[0].Port.Path, "firmware", devices[0].Firmware)
	return devices[0].Port.Path, nil
}

// Filter drops blocked and ignored ports.
func Filter(ports []Port, blocklist, ignore []string) []Port {
	out := make([]Port, 0, len(ports))
	for _, p := range ports {
		if p.VIDPID != "" && IsBlocked(p.VIDPID, blocklist) {
			continue
		}
		if IsPathIgnored(p.Path, ignore) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsBlocked compares VID:PID pairs case-insensitively.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, b := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(b)) {
			return true
		}
	}
	return false
}

// IsPathIgnored matches cleaned paths case-insensitively.
func IsPathIgnored(path string, ignore []string) bool {
	if path == "" {
		return false
	}
	norm := strings.ToLower(filepath.Clean(path))
	for _, ig := range ignore {
		if ig != "" && norm == strings.ToLower(filepath.Clean(ig)) {
			return true
		}
	}
	return false
}

// SerialPorts lists the serial ports the OS knows about.
func SerialPorts() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]Port, 0, len(details))
	for _, d := range details {
		p := Port{Path: d.Name}
		if d.IsUSB {
			p.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
			p.Product = d.Product
			p.SerialNumber = d.SerialNumber
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// ProbeUART opens path once and asks for the firmware version. It never
// retries, so a port owned by some other device sees a single frame.
func ProbeUART(ctx context.Context, path string) (string, error) {
	t, err := uart.Open(path)
	if err != nil {
		return "", err
	}
	dev := reader.New(t, reader.WithRetry(reader.RetryConfig{MaxAttempts: 1}))
	defer func() { _ = dev.Close() }()

	if err := dev.Init(ctx); err != nil {
		return "", err
	}
	fw := dev.Firmware()
	if fw == nil {
		return "", errors.New("no firmware response")
	}
	return fw.Version, nil
}
