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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-kiosk/directory"
	"github.com/ZaparooProject/go-kiosk/display"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent check-ins and check-outs from the local ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Directory.LedgerPath
			if path == "" {
				return errors.New("no ledger configured (directory.ledger-path)")
			}
			ledger, err := directory.OpenLedger(path)
			if err != nil {
				return err
			}
			defer func() { _ = ledger.Close() }()

			ctx := cmd.Context()
			entries, err := ledger.Recent(ctx, limit)
			if err != nil {
				return err
			}
			pending, err := ledger.Unsynced(ctx)
			if err != nil {
				return err
			}

			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := "synced"
				if !e.Synced {
					status = "pending"
					if e.Error != "" {
						status = "failed: " + e.Error
					}
				}
				rows = append(rows, []string{
					e.RecordedAt.In(loc).Format(time.DateTime),
					e.UserID,
					e.Action,
					e.Location,
					status,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, display.Table([]string{"TIME", "USER", "ACTION", "LOCATION", "STATUS"}, rows))
			fmt.Fprintf(out, "%d entries not confirmed by the directory\n", pending)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of entries to show")
	return cmd
}
