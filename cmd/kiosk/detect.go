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
	"fmt"

	"github.com/ZaparooProject/go-kiosk/detection"
	"github.com/ZaparooProject/go-kiosk/display"
	"github.com/spf13/cobra"
)

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Search the serial ports for a PN532",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := detection.Detect(cmd.Context(), detectOptions(a.cfg.Reader))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []string{d.Port.Path, d.Port.VIDPID, d.Port.Product, d.Firmware})
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Table([]string{"PORT", "VID:PID", "PRODUCT", "FIRMWARE"}, rows))
			return nil
		},
	}
}
