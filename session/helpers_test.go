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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	testutil "github.com/ZaparooProject/go-kiosk/internal/testing"
	"github.com/ZaparooProject/go-kiosk/keypad"
	"github.com/ZaparooProject/go-kiosk/ntag"
	"github.com/stretchr/testify/require"
)

const pollTimeout = 50 * time.Millisecond

const (
	studentID = "5550001234"
	adminID   = "5550009999"
	newUserID = "5550004321"
)

var errBackend = errors.New("backend unavailable")

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDirectory struct {
	users     map[string]kiosk.DirectoryRecord
	lookupErr error
	recordErr error
	calls     []string
	mu        sync.Mutex
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]kiosk.DirectoryRecord{
		studentID: {FirstName: "Ada", LastName: "Lovelace", Role: kiosk.RoleStudent, ActiveUser: "Yes", CheckInStatus: "Checked Out"},
		adminID:   {FirstName: "Grace", LastName: "Hopper", Role: kiosk.RoleAdmin, ActiveUser: "Yes"},
		newUserID: {FirstName: "Alan", LastName: "Turing", Role: kiosk.RoleStudent, ActiveUser: "Yes"},
	}}
}

func (d *fakeDirectory) set(id string, rec kiosk.DirectoryRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[id] = rec
}

func (d *fakeDirectory) Lookup(_ context.Context, id string) (kiosk.DirectoryRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "lookup "+id)
	if d.lookupErr != nil {
		return kiosk.DirectoryRecord{}, d.lookupErr
	}
	rec, ok := d.users[id]
	if !ok {
		return kiosk.DirectoryRecord{}, kiosk.ErrUserNotFound
	}
	return rec, nil
}

func (d *fakeDirectory) RecordCheckIn(_ context.Context, id string) error {
	return d.record("check-in "+id, id, kiosk.CheckedIn)
}

func (d *fakeDirectory) RecordCheckOut(_ context.Context, id string) error {
	return d.record("check-out "+id, id, "Checked Out")
}

func (d *fakeDirectory) record(call, id, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	if d.recordErr != nil {
		return d.recordErr
	}
	rec := d.users[id]
	rec.CheckInStatus = status
	d.users[id] = rec
	return nil
}

func (d *fakeDirectory) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

type recorder struct {
	announced []kiosk.Announcement
	statuses  []string
	mu        sync.Mutex
}

func (r *recorder) Announce(_ context.Context, a kiosk.Announcement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announced = append(r.announced, a)
}

func (r *recorder) PublishStatus(_ context.Context, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
	return nil
}

func (r *recorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.announced))
	for _, a := range r.announced {
		out = append(out, a.String())
	}
	return out
}

func (r *recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announced, r.statuses = nil, nil
}

type fakeProximity struct{ present atomic.Bool }

func (p *fakeProximity) Present() bool { return p.present.Load() }

type connectivityFunc func(ctx context.Context) error

func (f connectivityFunc) WaitReady(ctx context.Context) error { return f(ctx) }

type harness struct {
	m     *Machine
	clock *fakeClock
	kp    *keypad.Keypad
	dir   *fakeDirectory
	rec   *recorder
	prox  *fakeProximity
	tag   *testutil.VirtualTag
}

func newHarness(t *testing.T, mutate func(*Config, *Deps)) *harness {
	t.Helper()

	h := &harness{
		clock: newFakeClock(),
		kp:    keypad.New(nil, nil, keypad.DefaultConfig()),
		dir:   newFakeDirectory(),
		rec:   &recorder{},
		prox:  &fakeProximity{},
		tag:   testutil.NewVirtualNTAG213(nil),
	}
	h.tag.Remove()

	cfg := DefaultConfig()
	deps := Deps{
		Reader:    h.tag,
		Keypad:    h.kp,
		Proximity: h.prox,
		Directory: h.dir,
		Announcer: h.rec,
		Status:    h.rec,
		Now:       h.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	m, err := New(cfg, deps)
	require.NoError(t, err)
	h.m = m
	return h
}

// toIdle walks the machine through bring-up and clears the recorder.
func (h *harness) toIdle(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	h.m.Step(ctx) // HardwareInit
	h.m.Step(ctx) // WifiConnecting
	h.m.Step(ctx) // SoftwareInit
	h.clock.Advance(h.m.cfg.SettleDelay)
	h.m.Step(ctx)
	require.Equal(t, kiosk.StateIdle, h.m.State())
	h.rec.Reset()
}

// toUserDetected brings the machine to UserDetected with a user in front.
func (h *harness) toUserDetected(t *testing.T) {
	t.Helper()
	h.toIdle(t)
	h.prox.present.Store(true)
	h.m.Step(context.Background())
	require.Equal(t, kiosk.StateUserDetected, h.m.State())
	h.rec.Reset()
}

func (h *harness) typeKeys(keys string) {
	for i := range len(keys) {
		h.kp.HandleKey(keys[i])
	}
}

func (h *harness) presentTag(t *testing.T, id string) {
	t.Helper()
	h.tag.Insert()
	require.NoError(t, ntag.WriteIdentity(context.Background(), h.tag, id, 144))
}
