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

// Package session runs the kiosk's check-in/out state machine and the admin
// card provisioning sub-machine.
//
// Both machines advance one step per cycle. Timed states record when they
// were entered and leave once their dwell has elapsed on the machine clock,
// so a step never sleeps.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
)

// ErrAlreadyRunning is returned by Run when the machine loop is active.
var ErrAlreadyRunning = errors.New("session: already running")

// Status messages published to the backend.
const (
	msgConnected   = "Kiosk Connected"
	msgEnterAdmin  = "Entering Admin Mode"
	msgExitAdmin   = "Exiting Admin Mode"
	msgValidating  = "Validating "
	msgCheckedIn   = "User Checked In: "
	msgCheckedOut  = "User Checked Out: "
	msgFailedCheck = "Validation Failed: "
)

// Indicator shows the machine state on status LEDs. Start launches its
// refresh loop, which reads the current state through state.
type Indicator interface {
	Start(ctx context.Context, state func() kiosk.Announcement) error
}

// Deps are the collaborators of both machines. Keypad and Directory are
// required; the rest may be nil.
type Deps struct {
	Reader       kiosk.TagReader
	Keypad       Keypad
	Proximity    kiosk.ProximitySensor
	Directory    kiosk.Directory
	Announcer    kiosk.Announcer
	Connectivity kiosk.Connectivity
	Status       kiosk.StatusPublisher
	Indicator    Indicator
	// ClockCheck verifies wall time before activity is logged. A failure
	// is logged only.
	ClockCheck func(ctx context.Context) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// Machine is the session state machine.
type Machine struct {
	deps     Deps
	now      func() time.Time
	agg      *Aggregator
	admin    *AdminMachine
	hook     *Hook
	connDone chan error
	record   *kiosk.DirectoryRecord

	enteredAt      time.Time
	detectStart    time.Time
	validateStart  time.Time
	identity       string
	cfg            Config
	lastKeystrokes uint64
	mu             syncutil.Mutex
	state          kiosk.SessionState
	connStarted    bool
	running        atomic.Bool
}

// New creates a session machine and its admin sub-machine.
func New(cfg Config, deps Deps) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if deps.Keypad == nil || deps.Directory == nil {
		return nil, fmt.Errorf("%w: session needs a keypad and a directory", kiosk.ErrNotConfigured)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m := &Machine{
		cfg:      cfg,
		deps:     deps,
		now:      deps.Now,
		hook:     NewHook(deps.Announcer, cfg.AnnounceTimeout),
		agg:      NewAggregator(deps.Reader, deps.Keypad, cfg.TagPollTimeout),
		connDone: make(chan error, 1),
		state:    kiosk.StateHardwareInit,
	}
	m.admin = newAdminMachine(cfg, deps, m.hook, m.State)
	m.enteredAt = m.now()
	return m, nil
}

// Admin returns the admin sub-machine. Its Run loop is started separately.
func (m *Machine) Admin() *AdminMachine { return m.admin }

// Hook returns the announce hook shared by both machines.
func (m *Machine) Hook() *Hook { return m.hook }

// State returns the current session state.
func (m *Machine) State() kiosk.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot describes the current state for display.
func (m *Machine) Snapshot() kiosk.Announcement {
	m.mu.Lock()
	a := kiosk.Announcement{Session: m.state, Identity: m.identity, Record: m.record}
	m.mu.Unlock()

	a.Admin = m.admin.State()
	if a.Session == kiosk.StateAdminMode {
		a.Identity, a.Record = m.admin.Target(), nil
	}
	return a
}

// Run steps the machine every cycle until ctx ends.
func (m *Machine) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	ticker := time.NewTicker(m.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		m.Step(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Step runs one cycle.
func (m *Machine) Step(ctx context.Context) {
	now := m.now()

	switch m.state {
	case kiosk.StateHardwareInit:
		m.hook.Transition(ctx, m.Snapshot())
		if m.deps.Indicator != nil {
			if err := m.deps.Indicator.Start(ctx, m.Snapshot); err != nil {
				slog.Warn("status indicator did not start", "error", err)
			}
		}
		m.enter(ctx, kiosk.StateWifiConnecting)

	case kiosk.StateWifiConnecting:
		m.stepConnecting(ctx)

	case kiosk.StateSoftwareInit:
		m.publish(ctx, msgConnected)
		if m.deps.ClockCheck != nil {
			if err := m.deps.ClockCheck(ctx); err != nil {
				slog.Warn("clock check failed, activity timestamps may be wrong", "error", err)
			}
		}
		m.enter(ctx, kiosk.StateSystemReady)

	case kiosk.StateSystemReady:
		if m.dwelt(now, m.cfg.SettleDelay) {
			m.enter(ctx, kiosk.StateIdle)
		}

	case kiosk.StateIdle:
		if m.deps.Proximity == nil || m.deps.Proximity.Present() {
			m.enter(ctx, kiosk.StateUserDetected)
		}

	case kiosk.StateUserDetected:
		m.stepUserDetected(ctx, now)

	case kiosk.StateKeypadEntryError:
		if m.dwelt(now, m.cfg.EntryErrorDelay) {
			m.enter(ctx, kiosk.StateUserDetected)
		}

	case kiosk.StateDatabaseValidation:
		m.stepValidation(ctx)

	case kiosk.StateCheckIn, kiosk.StateCheckOut:
		if m.dwelt(now, m.cfg.ResultDelay) {
			m.enter(ctx, kiosk.StateIdle)
		}

	case kiosk.StateValidationFailure:
		if m.dwelt(now, m.cfg.ResultDelay) {
			m.enter(ctx, kiosk.StateUserDetected)
		}

	case kiosk.StateAdminMode:
		if m.admin.Done().TryTake() {
			m.publish(ctx, msgExitAdmin)
			m.enter(ctx, kiosk.StateIdle)
		}

	case kiosk.StateError:
		// Fail-stop. The operator restarts the kiosk.
	}
}

func (m *Machine) stepConnecting(ctx context.Context) {
	if m.deps.Connectivity == nil {
		m.enter(ctx, kiosk.StateSoftwareInit)
		return
	}
	if !m.connStarted {
		m.connStarted = true
		go func() {
			m.connDone <- m.deps.Connectivity.WaitReady(ctx)
		}()
	}

	select {
	case err := <-m.connDone:
		if err != nil {
			slog.Error("network bring-up failed", "error", err)
			m.enter(ctx, kiosk.StateError)
			return
		}
		m.enter(ctx, kiosk.StateSoftwareInit)
	default:
	}
}

func (m *Machine) stepUserDetected(ctx context.Context, now time.Time) {
	if ks := m.deps.Keypad.Buffer().Keystrokes(); ks != m.lastKeystrokes {
		m.lastKeystrokes = ks
		m.detectStart = now
	}
	if now.Sub(m.detectStart) > m.cfg.UserTimeout {
		slog.Info("no identity presented, returning to idle")
		m.enter(ctx, kiosk.StateIdle)
		return
	}

	acq := m.agg.Acquire(ctx)
	switch {
	case acq.Source == SourceNone:
		return

	case acq.Err != nil:
		slog.Warn("tag does not carry a readable identity", "error", acq.Err)
		m.validateStart = now
		m.setSubject("", nil)
		m.enter(ctx, kiosk.StateValidationFailure)

	case acq.Source == SourceKeypad && acq.KeypadLen != kiosk.IDLen:
		slog.Info("keypad entry has wrong length", "len", acq.KeypadLen, "want", kiosk.IDLen)
		m.enter(ctx, kiosk.StateKeypadEntryError)

	default:
		m.validateStart = now
		m.setSubject(acq.Text, nil)
		if err := kiosk.ValidateIdentity(acq.Text); err != nil {
			slog.Info("identity rejected", "source", acq.Source, "error", err)
			m.enter(ctx, kiosk.StateValidationFailure)
			return
		}
		slog.Info("identity presented", "source", acq.Source, "id", acq.Text)
		m.enter(ctx, kiosk.StateDatabaseValidation)
	}
}

func (m *Machine) stepValidation(ctx context.Context) {
	id := m.identity
	rec, err := m.deps.Directory.Lookup(ctx, id)
	if err != nil {
		slog.Warn("directory lookup failed", "id", id, "error", err)
		m.enter(ctx, kiosk.StateValidationFailure)
		return
	}
	m.setSubject(id, &rec)

	switch rec.Role {
	case kiosk.RoleAdmin:
		m.publish(ctx, msgEnterAdmin)
		m.deps.Keypad.RouteToAdmin()
		m.enter(ctx, kiosk.StateAdminMode)
		m.admin.Arm()

	case kiosk.RoleStudent:
		if !rec.Active() {
			slog.Warn("inactive user", "id", id, "error", kiosk.ErrInactiveUser)
			m.enter(ctx, kiosk.StateValidationFailure)
			return
		}
		record, next := m.deps.Directory.RecordCheckIn, kiosk.StateCheckIn
		if rec.IsCheckedIn() {
			record, next = m.deps.Directory.RecordCheckOut, kiosk.StateCheckOut
		}
		if err := record(ctx, id); err != nil {
			slog.Warn("directory update failed", "id", id, "to", next, "error", err)
			m.enter(ctx, kiosk.StateValidationFailure)
			return
		}
		m.enter(ctx, next)

	default:
		slog.Warn("user has no usable role", "id", id, "role", rec.Role, "error", kiosk.ErrUnknownRole)
		m.enter(ctx, kiosk.StateValidationFailure)
	}
}

// enter switches state, runs the entry actions of s and announces it.
func (m *Machine) enter(ctx context.Context, s kiosk.SessionState) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	m.enteredAt = m.now()
	slog.Debug("session transition", "from", prev, "to", s)

	buf := m.deps.Keypad.Buffer()
	switch s {
	case kiosk.StateIdle:
		m.setSubject("", nil)
	case kiosk.StateUserDetected:
		buf.Clear()
		m.deps.Keypad.Submitted().Clear()
		m.detectStart = m.enteredAt
		m.lastKeystrokes = buf.Keystrokes()
	case kiosk.StateKeypadEntryError:
		buf.Clear()
	case kiosk.StateDatabaseValidation:
		m.publish(ctx, msgValidating+m.identity)
	case kiosk.StateCheckIn:
		m.publish(ctx, msgCheckedIn+m.displayName())
		m.logElapsed("check-in")
	case kiosk.StateCheckOut:
		m.publish(ctx, msgCheckedOut+m.displayName())
		m.logElapsed("check-out")
	case kiosk.StateValidationFailure:
		m.publish(ctx, msgFailedCheck+m.identity)
		m.logElapsed("validation failure")
	}

	m.hook.Transition(ctx, m.Snapshot())
}

func (m *Machine) dwelt(now time.Time, d time.Duration) bool {
	return now.Sub(m.enteredAt) >= d
}

func (m *Machine) setSubject(id string, rec *kiosk.DirectoryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity, m.record = id, rec
}

func (m *Machine) displayName() string {
	if m.record != nil {
		if name := m.record.FullName(); name != "" {
			return name
		}
	}
	return m.identity
}

func (m *Machine) logElapsed(what string) {
	slog.Info("identity handled", "outcome", what, "id", m.identity,
		"elapsed", m.now().Sub(m.validateStart).Round(time.Millisecond))
}

func (m *Machine) publish(ctx context.Context, msg string) {
	if m.deps.Status == nil {
		return
	}
	if m.cfg.AnnounceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.AnnounceTimeout)
		defer cancel()
	}
	if err := m.deps.Status.PublishStatus(ctx, msg); err != nil {
		slog.Warn("status publish failed", "message", msg, "error", err)
	}
}
