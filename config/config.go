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

// Package config loads the kiosk configuration.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file at $XDG_CONFIG_HOME/go-kiosk/config.yaml (defaults to
// ~/.config/go-kiosk/config.yaml) and KIOSK_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
	// Kiosk images often ship without a zoneinfo database.
	_ "time/tzdata"

	"github.com/ZaparooProject/go-kiosk/reader"
	"github.com/ZaparooProject/go-kiosk/session"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultTimeZone is used for activity log timestamps.
const DefaultTimeZone = "America/New_York"

// Config is the complete kiosk configuration.
type Config struct {
	Kiosk     Kiosk     `yaml:"kiosk"`
	Reader    Reader    `yaml:"reader"`
	Keypad    Keypad    `yaml:"keypad"`
	Proximity Proximity `yaml:"proximity"`
	Buzzer    Buzzer    `yaml:"buzzer"`
	Display   Display   `yaml:"display"`
	Directory Directory `yaml:"directory"`
	Clock     Clock     `yaml:"clock"`
	Telemetry Telemetry `yaml:"telemetry"`
	Log       Log       `yaml:"log"`
	Timing    Timing    `yaml:"timing"`
}

// Kiosk identifies this unit to the directory.
type Kiosk struct {
	ID       string `yaml:"id"        env:"KIOSK_ID"`
	Name     string `yaml:"name"      env:"KIOSK_NAME"`
	Location string `yaml:"location"  env:"KIOSK_LOCATION"`
	TimeZone string `yaml:"time-zone" env:"KIOSK_TIME_ZONE"`
}

// AutoDevice asks for a serial port search at start-up.
const AutoDevice = "auto"

// Reader selects the PN532 link.
type Reader struct {
	Transport reader.TransportType `yaml:"transport" env:"KIOSK_READER_TRANSPORT"`
	// Device is a serial port, SPI port or I2C bus. AutoDevice searches
	// the serial ports.
	Device         string        `yaml:"device"          env:"KIOSK_READER_DEVICE"`
	CommandTimeout time.Duration `yaml:"command-timeout" env:"KIOSK_READER_COMMAND_TIMEOUT"`
	// Blocklist and IgnorePaths keep detection away from other devices.
	Blocklist   []string `yaml:"blocklist"    env:"KIOSK_READER_BLOCKLIST"    envSeparator:","`
	IgnorePaths []string `yaml:"ignore-paths" env:"KIOSK_READER_IGNORE_PATHS" envSeparator:","`
}

// Keypad locates the PCF8574 expander. An empty Bus disables scanning.
type Keypad struct {
	Bus          string        `yaml:"bus"           env:"KIOSK_KEYPAD_BUS"`
	Address      uint16        `yaml:"address"       env:"KIOSK_KEYPAD_ADDRESS"`
	ScanInterval time.Duration `yaml:"scan-interval" env:"KIOSK_KEYPAD_SCAN_INTERVAL"`
	Debounce     time.Duration `yaml:"debounce"      env:"KIOSK_KEYPAD_DEBOUNCE"`
}

// Proximity names the PIR input pin. Empty means always present.
type Proximity struct {
	Pin string `yaml:"pin" env:"KIOSK_PROXIMITY_PIN"`
}

// Buzzer names the PWM pin. Empty means silent.
type Buzzer struct {
	Pin string `yaml:"pin" env:"KIOSK_BUZZER_PIN"`
}

// Display controls the terminal screen and status strip.
type Display struct {
	Screen bool `yaml:"screen" env:"KIOSK_DISPLAY_SCREEN"`
	Strip  bool `yaml:"strip"  env:"KIOSK_DISPLAY_STRIP"`
}

// Directory configures the remote user directory.
type Directory struct {
	BaseURL   string        `yaml:"base-url"   env:"KIOSK_DIRECTORY_URL"`
	AuthToken string        `yaml:"auth-token" env:"KIOSK_DIRECTORY_AUTH_TOKEN"`
	Timeout   time.Duration `yaml:"timeout"    env:"KIOSK_DIRECTORY_TIMEOUT"`
	// LedgerPath is the local SQLite activity mirror. Empty disables it.
	LedgerPath string        `yaml:"ledger-path" env:"KIOSK_LEDGER_PATH"`
	Heartbeat  time.Duration `yaml:"heartbeat"   env:"KIOSK_HEARTBEAT_INTERVAL"`
}

// Clock configures the start-up NTP check.
type Clock struct {
	Pool      string        `yaml:"ntp-pool"  env:"KIOSK_NTP_POOL"`
	Threshold time.Duration `yaml:"threshold" env:"KIOSK_CLOCK_THRESHOLD"`
	Disabled  bool          `yaml:"disabled"  env:"KIOSK_CLOCK_CHECK_DISABLED"`
}

// Telemetry configures trace export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint string `yaml:"endpoint" env:"KIOSK_OTLP_ENDPOINT"`
}

// Log configures logging.
type Log struct {
	Level      string `yaml:"level"       env:"KIOSK_LOG_LEVEL"`
	SessionDir string `yaml:"session-dir" env:"KIOSK_LOG_SESSION_DIR"`
}

// Timing mirrors session.Config.
type Timing struct {
	CycleInterval        time.Duration `yaml:"cycle-interval"          env:"KIOSK_CYCLE_INTERVAL"`
	UserTimeout          time.Duration `yaml:"user-timeout"            env:"KIOSK_USER_TIMEOUT"`
	TagPollTimeout       time.Duration `yaml:"tag-poll-timeout"        env:"KIOSK_TAG_POLL_TIMEOUT"`
	SettleDelay          time.Duration `yaml:"settle-delay"            env:"KIOSK_SETTLE_DELAY"`
	EntryErrorDelay      time.Duration `yaml:"entry-error-delay"       env:"KIOSK_ENTRY_ERROR_DELAY"`
	ResultDelay          time.Duration `yaml:"result-delay"            env:"KIOSK_RESULT_DELAY"`
	AdminDelay           time.Duration `yaml:"admin-delay"             env:"KIOSK_ADMIN_DELAY"`
	AnnounceTimeout      time.Duration `yaml:"announce-timeout"        env:"KIOSK_ANNOUNCE_TIMEOUT"`
	NumIDAttempts        int           `yaml:"id-attempts"             env:"KIOSK_ID_ATTEMPTS"`
	MaxCardWriteAttempts int           `yaml:"max-card-write-attempts" env:"KIOSK_MAX_CARD_WRITE_ATTEMPTS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	s := session.DefaultConfig()
	return &Config{
		Kiosk: Kiosk{TimeZone: DefaultTimeZone},
		Reader: Reader{
			Transport:      reader.TransportUART,
			Device:         "/dev/ttyS0",
			CommandTimeout: reader.DefaultCommandTimeout,
		},
		Keypad: Keypad{
			Address:      0x20,
			ScanInterval: 100 * time.Millisecond,
			Debounce:     150 * time.Millisecond,
		},
		Display:   Display{Screen: true, Strip: true},
		Directory: Directory{Timeout: 10 * time.Second, Heartbeat: 5 * time.Minute},
		Clock:     Clock{Pool: "pool.ntp.org", Threshold: 2 * time.Second},
		Log:       Log{Level: "info"},
		Timing: Timing{
			CycleInterval:        s.CycleInterval,
			UserTimeout:          s.UserTimeout,
			TagPollTimeout:       s.TagPollTimeout,
			SettleDelay:          s.SettleDelay,
			EntryErrorDelay:      s.EntryErrorDelay,
			ResultDelay:          s.ResultDelay,
			AdminDelay:           s.AdminDelay,
			AnnounceTimeout:      s.AnnounceTimeout,
			NumIDAttempts:        s.NumIDAttempts,
			MaxCardWriteAttempts: s.MaxCardWriteAttempts,
		},
	}
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/go-kiosk/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "go-kiosk", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "go-kiosk", "config.yaml")
}

// Load reads path (Path when empty), applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every unusable value.
func (c *Config) Validate() error {
	var errs []error
	if !c.Reader.Transport.Valid() {
		errs = append(errs, fmt.Errorf("reader transport %q is not one of uart, spi, i2c", c.Reader.Transport))
	}
	if c.Reader.Device == "" {
		errs = append(errs, errors.New("reader device must be set"))
	}
	if c.Reader.Device == AutoDevice && c.Reader.Transport != reader.TransportUART {
		errs = append(errs, fmt.Errorf("reader device %q needs the uart transport", AutoDevice))
	}
	if c.Directory.BaseURL != "" {
		u, err := url.Parse(c.Directory.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("directory base URL %q must be an http(s) URL", c.Directory.BaseURL))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	for name, d := range map[string]time.Duration{
		"reader command timeout": c.Reader.CommandTimeout,
		"keypad scan interval":   c.Keypad.ScanInterval,
		"keypad debounce":        c.Keypad.Debounce,
		"directory timeout":      c.Directory.Timeout,
		"heartbeat interval":     c.Directory.Heartbeat,
		"clock threshold":        c.Clock.Threshold,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if err := c.Session().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timing: %w", err))
	}
	return errors.Join(errs...)
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Kiosk.TimeZone
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", name, err)
	}
	return loc, nil
}

// Session returns the state machine timing.
func (c *Config) Session() session.Config {
	t := c.Timing
	return session.Config{
		CycleInterval:        t.CycleInterval,
		UserTimeout:          t.UserTimeout,
		TagPollTimeout:       t.TagPollTimeout,
		SettleDelay:          t.SettleDelay,
		EntryErrorDelay:      t.EntryErrorDelay,
		ResultDelay:          t.ResultDelay,
		AdminDelay:           t.AdminDelay,
		AnnounceTimeout:      t.AnnounceTimeout,
		NumIDAttempts:        t.NumIDAttempts,
		MaxCardWriteAttempts: t.MaxCardWriteAttempts,
	}
}
