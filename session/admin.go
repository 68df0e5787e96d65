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

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/ZaparooProject/go-kiosk/internal/syncutil"
	"github.com/ZaparooProject/go-kiosk/ntag"
)

// AdminMachine provisions identity cards. It idles in Begin until the
// session machine arms it, walks the operator through entering a user ID
// and tapping a blank card, then returns to Begin and signals Done.
type AdminMachine struct {
	deps      Deps
	now       func() time.Time
	hook      *Hook
	session   func() kiosk.SessionState
	arm       *syncutil.Notifier
	done      *syncutil.Notifier
	enteredAt time.Time
	target    string
	cfg       Config
	attempts  int
	failures  int
	mu        syncutil.Mutex
	state     kiosk.AdminState
	running   atomic.Bool
}

func newAdminMachine(cfg Config, deps Deps, hook *Hook, session func() kiosk.SessionState) *AdminMachine {
	return &AdminMachine{
		cfg:       cfg,
		deps:      deps,
		now:       deps.Now,
		hook:      hook,
		session:   session,
		arm:       syncutil.NewNotifier(),
		done:      syncutil.NewNotifier(),
		state:     kiosk.AdminBegin,
		enteredAt: deps.Now(),
	}
}

// Arm starts an admin session.
func (a *AdminMachine) Arm() { a.arm.Give() }

// Done is given each time an admin session ends.
func (a *AdminMachine) Done() *syncutil.Notifier { return a.done }

// State returns the current admin state.
func (a *AdminMachine) State() kiosk.AdminState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Attempts returns the bad ID entries of the current admin session.
func (a *AdminMachine) Attempts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts
}

// Target returns the user ID being provisioned, if one was accepted.
func (a *AdminMachine) Target() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// Run steps the machine until ctx ends. Begin blocks until armed.
func (a *AdminMachine) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	for {
		a.Step(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if a.state == kiosk.AdminBegin {
			continue
		}
		t := time.NewTimer(a.cfg.CycleInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// Step runs one cycle. In Begin it blocks until Arm is called or ctx ends.
func (a *AdminMachine) Step(ctx context.Context) {
	kp := a.deps.Keypad
	now := a.now()

	switch a.state {
	case kiosk.AdminBegin:
		if err := a.arm.Take(ctx); err != nil {
			return
		}
		kp.Buffer().Clear()
		kp.AdminSubmitted().Clear()
		a.mu.Lock()
		a.attempts, a.failures, a.target = 0, 0, ""
		a.mu.Unlock()
		kp.RouteToAdmin()
		a.enter(ctx, kiosk.AdminEnterID)

	case kiosk.AdminEnterID:
		if !kp.AdminSubmitted().TryTake() {
			return
		}
		buf := kp.Buffer()
		if n := buf.Len(); n != kiosk.IDLen {
			slog.Info("admin entered an ID of the wrong length", "len", n, "want", kiosk.IDLen)
			a.rejectID(ctx)
			return
		}
		a.mu.Lock()
		a.target = buf.Snapshot()
		a.mu.Unlock()
		a.enter(ctx, kiosk.AdminValidateID)

	case kiosk.AdminValidateID:
		id := a.Target()
		rec, err := a.deps.Directory.Lookup(ctx, id)
		if err == nil && !rec.Active() {
			err = kiosk.ErrInactiveUser
		}
		if err != nil {
			slog.Info("ID cannot be provisioned", "id", id, "error", err)
			a.rejectID(ctx)
			return
		}
		a.enter(ctx, kiosk.AdminTapCard)

	case kiosk.AdminTapCard:
		a.stepTapCard(ctx)

	case kiosk.AdminEnterIDError:
		if now.Sub(a.enteredAt) >= a.cfg.AdminDelay {
			a.enter(ctx, kiosk.AdminEnterID)
		}

	case kiosk.AdminCardWriteError:
		if now.Sub(a.enteredAt) >= a.cfg.AdminDelay {
			a.enter(ctx, kiosk.AdminTapCard)
		}

	case kiosk.AdminCardWriteSuccess, kiosk.AdminError:
		if now.Sub(a.enteredAt) >= a.cfg.AdminDelay {
			a.enter(ctx, kiosk.AdminBegin)
			a.done.Give()
		}
	}
}

func (a *AdminMachine) stepTapCard(ctx context.Context) {
	if a.deps.Reader == nil {
		slog.Error("card provisioning needs an NFC reader", "error", kiosk.ErrNotConfigured)
		a.enter(ctx, kiosk.AdminError)
		return
	}

	err := ntag.Provision(ctx, a.deps.Reader, a.Target(), a.cfg.TagPollTimeout)
	switch {
	case err == nil:
		slog.Info("card provisioned", "id", a.Target())
		a.enter(ctx, kiosk.AdminCardWriteSuccess)
	case errors.Is(err, kiosk.ErrNoTagPresent):
	default:
		a.failures++
		slog.Warn("card write failed", "id", a.Target(), "failures", a.failures, "error", err)
		if a.cfg.MaxCardWriteAttempts > 0 && a.failures >= a.cfg.MaxCardWriteAttempts {
			a.enter(ctx, kiosk.AdminError)
			return
		}
		a.enter(ctx, kiosk.AdminCardWriteError)
	}
}

// rejectID handles a bad ID entry. The NumIDAttempts-th one ends the
// admin session.
func (a *AdminMachine) rejectID(ctx context.Context) {
	if a.Attempts()+1 >= a.cfg.NumIDAttempts {
		a.enter(ctx, kiosk.AdminError)
		return
	}
	a.enter(ctx, kiosk.AdminEnterIDError)
}

func (a *AdminMachine) enter(ctx context.Context, s kiosk.AdminState) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	if s == kiosk.AdminEnterIDError {
		a.attempts++
	}
	a.mu.Unlock()
	a.enteredAt = a.now()
	slog.Debug("admin transition", "from", prev, "to", s)

	if s == kiosk.AdminEnterIDError {
		a.deps.Keypad.Buffer().Clear()
		a.deps.Keypad.RouteToAdmin()
	}

	a.hook.Transition(ctx, kiosk.Announcement{
		Session:  a.session(),
		Admin:    s,
		Identity: a.Target(),
	})
}
