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
	"io"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/ntag"
	"github.com/ZaparooProject/go-kiosk/reader"
	"github.com/spf13/cobra"
)

const defaultWait = 10 * time.Second

// tagCmd builds a maintenance command that opens the reader, runs fn with
// the presence wait from --wait and closes the reader again.
func tagCmd(a *app, use, short string, args cobra.PositionalArgs,
	fn func(ctx context.Context, out io.Writer, dev *reader.Device, wait time.Duration, args []string) error,
) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dev, err := openReader(ctx, a.cfg.Reader)
			if err != nil {
				return err
			}
			defer func() { _ = dev.Close() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Waiting up to %s for a tag...\n", wait)
			return fn(ctx, out, dev, wait, args)
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", defaultWait, "How long to wait for a tag")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	return tagCmd(a, "read", "Print the identity stored on a tag", cobra.NoArgs,
		func(ctx context.Context, out io.Writer, dev *reader.Device, wait time.Duration, _ []string) error {
			rec, err := ntag.ReadRecord(ctx, dev, wait)
			if err != nil {
				return fmt.Errorf("read tag: %w", err)
			}
			fmt.Fprintf(out, "%s %s [%s]: %s\n", rec.CC.Model(), rec.Tag, rec.LangCode, rec.Text)
			return nil
		})
}

func newWriteCmd(a *app) *cobra.Command {
	return tagCmd(a, "write <id>", "Provision a tag with a user ID", cobra.ExactArgs(1),
		func(ctx context.Context, out io.Writer, dev *reader.Device, wait time.Duration, args []string) error {
			if err := kiosk.ValidateIdentity(args[0]); err != nil {
				return err
			}
			if err := ntag.Provision(ctx, dev, args[0], wait); err != nil {
				return fmt.Errorf("write tag: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s\n", args[0])
			return nil
		})
}

func newEraseCmd(a *app) *cobra.Command {
	return tagCmd(a, "erase", "Zero the data area of a tag", cobra.NoArgs,
		func(ctx context.Context, out io.Writer, dev *reader.Device, wait time.Duration, _ []string) error {
			cc, err := ntag.EraseTag(ctx, dev, wait)
			if err != nil {
				return fmt.Errorf("erase tag: %w", err)
			}
			fmt.Fprintf(out, "Erased %d bytes on %s\n", cc.DataAreaLen(), cc.Model())
			return nil
		})
}

func newDumpCmd(a *app) *cobra.Command {
	return tagCmd(a, "dump", "Print every page of a tag and its NDEF records", cobra.NoArgs,
		func(ctx context.Context, out io.Writer, dev *reader.Device, wait time.Duration, _ []string) error {
			d, err := ntag.DumpTag(ctx, dev, wait)
			if err != nil {
				return fmt.Errorf("dump tag: %w", err)
			}
			writeDump(out, d)
			return nil
		})
}

func newWriteURICmd(a *app) *cobra.Command {
	return tagCmd(a, "write-uri <uri>", "Write a single URI record to a tag", cobra.ExactArgs(1),
		func(ctx context.Context, out io.Writer, dev *reader.Device, wait time.Duration, args []string) error {
			if err := ntag.WriteURI(ctx, dev, args[0], wait); err != nil {
				return fmt.Errorf("write URI: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s\n", args[0])
			return nil
		})
}

func writeDump(out io.Writer, d *ntag.Dump) {
	fmt.Fprintf(out, "%s %s, %d data bytes\n\n%s\n", d.CC.Model(), d.Tag, d.CC.DataAreaLen(), d.Hex())
	if d.ParseErr != nil {
		fmt.Fprintf(out, "NDEF: %v\n", d.ParseErr)
		return
	}
	if len(d.Records) == 0 {
		fmt.Fprintln(out, "NDEF: no records")
		return
	}
	for i, r := range d.Records {
		switch {
		case r.Text != "":
			fmt.Fprintf(out, "record %d: text %q\n", i, r.Text)
		case r.URI != "":
			fmt.Fprintf(out, "record %d: uri %s\n", i, r.URI)
		default:
			fmt.Fprintf(out, "record %d: tnf %d type %q, %d bytes\n", i, r.TNF, r.Type, len(r.Payload))
		}
	}
}
