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

// Command kiosk runs the check-in/out kiosk and its tag maintenance tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/go-kiosk/config"
	"github.com/ZaparooProject/go-kiosk/internal/logging"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by every subcommand once the root command has
// loaded the configuration.
type app struct {
	cfg        *config.Config
	sessionLog *logging.SessionLog
	configPath string
	logLevel   string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "kiosk",
		Short:         "Unattended NFC check-in/out kiosk",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.sessionLog.Close()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/go-kiosk/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newRunCmd(a),
		newReadCmd(a),
		newWriteCmd(a),
		newEraseCmd(a),
		newDumpCmd(a),
		newWriteURICmd(a),
		newHistoryCmd(a),
		newDetectCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	if cfg.Log.SessionDir == "" {
		return logging.Configure(cfg.Log.Level)
	}
	sl, err := logging.InitSessionLog(cfg.Log.SessionDir)
	if err != nil {
		return err
	}
	a.sessionLog = sl
	return logging.ConfigureWithSession(cfg.Log.Level, sl)
}
