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

package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

type fakePin struct {
	mu      sync.Mutex
	events  []string
	pwmErr  error
	played  chan struct{}
	playCap int
}

func (p *fakePin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "out "+l.String())
	return nil
}

func (p *fakePin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf("pwm %d %s", duty, f))
	if p.played != nil && len(p.events) >= p.playCap {
		select {
		case p.played <- struct{}{}:
		default:
		}
	}
	return p.pwmErr
}

func (p *fakePin) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newTestBuzzer(pin *fakePin) (*Buzzer, *[]time.Duration) {
	var slept []time.Duration
	var mu sync.Mutex
	b := New(pin)
	b.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		return ctx.Err()
	}
	return b, &slept
}

func TestMelodyFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a      kiosk.Announcement
		ok     bool
		notes  int
		volume Volume
	}{
		{"hardware init", kiosk.Announcement{Session: kiosk.StateHardwareInit}, true, 1, VolumeLow},
		{"check in", kiosk.Announcement{Session: kiosk.StateCheckIn}, true, 6, VolumeMedium},
		{"check out", kiosk.Announcement{Session: kiosk.StateCheckOut}, true, 4, VolumeMedium},
		{"error", kiosk.Announcement{Session: kiosk.StateError}, true, 5, VolumeHigh},
		{"idle is silent", kiosk.Announcement{Session: kiosk.StateIdle}, false, 0, 0},
		{"validating is silent", kiosk.Announcement{Session: kiosk.StateDatabaseValidation}, false, 0, 0},
		{"entry error is silent", kiosk.Announcement{Session: kiosk.StateKeypadEntryError}, false, 0, 0},
		{"admin begin is silent", kiosk.Announcement{Session: kiosk.StateAdminMode}, false, 0, 0},
		{
			"admin states chime",
			kiosk.Announcement{Session: kiosk.StateAdminMode, Admin: kiosk.AdminTapCard},
			true, 7, VolumeMedium,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := MelodyFor(tt.a)
			require.Equal(t, tt.ok, ok)
			assert.Len(t, m.Notes, tt.notes)
			assert.InDelta(t, float64(tt.volume), float64(m.Volume), 1e-9)
		})
	}
}

func TestMelodyDuration(t *testing.T) {
	t.Parallel()

	m, ok := MelodyFor(kiosk.Announcement{Session: kiosk.StateUserDetected})
	require.True(t, ok)
	assert.Equal(t, 310*time.Millisecond+3*Gap, m.Duration())
}

func TestPlay(t *testing.T) {
	t.Parallel()

	pin := &fakePin{}
	b, slept := newTestBuzzer(pin)

	m := tune(VolumeHigh, n(A4, 200), n(Rest, 100))
	require.NoError(t, b.Play(context.Background(), m))

	duty := gpio.Duty(float64(gpio.DutyMax) * 0.2)
	assert.Equal(t, []string{
		fmt.Sprintf("pwm %d %s", duty, A4),
		"out Low",
		"out Low",
		"out Low",
		"out Low",
	}, pin.Events())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, Gap, 100 * time.Millisecond, Gap}, *slept)
}

func TestPlay_PinFailureSilences(t *testing.T) {
	t.Parallel()

	pin := &fakePin{pwmErr: errors.New("no hardware pwm")}
	b, _ := newTestBuzzer(pin)

	err := b.Play(context.Background(), tune(VolumeLow, n(C3, 200)))
	require.Error(t, err)
	assert.Equal(t, "out Low", pin.Events()[len(pin.Events())-1])
}

func TestPlay_Cancelled(t *testing.T) {
	t.Parallel()

	pin := &fakePin{}
	b, _ := newTestBuzzer(pin)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Play(ctx, tune(VolumeLow, n(C3, 200), n(C4, 200)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, pin.Events(), 2, "one note started, then silenced")
}

func TestAnnounce_LatestWins(t *testing.T) {
	t.Parallel()

	b := New(&fakePin{})
	ctx := context.Background()
	b.Announce(ctx, kiosk.Announcement{Session: kiosk.StateUserDetected})
	b.Announce(ctx, kiosk.Announcement{Session: kiosk.StateIdle})
	b.Announce(ctx, kiosk.Announcement{Session: kiosk.StateCheckIn})

	require.Len(t, b.queue, 1)
	m := <-b.queue
	assert.Len(t, m.Notes, 6)
}

func TestRun(t *testing.T) {
	t.Parallel()

	pin := &fakePin{played: make(chan struct{}, 1), playCap: 1}
	b, _ := newTestBuzzer(pin)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()

	b.Announce(ctx, kiosk.Announcement{Session: kiosk.StateHardwareInit})
	select {
	case <-pin.played:
	case <-time.After(time.Second):
		t.Fatal("melody was not played")
	}
	assert.Contains(t, pin.Events()[0], C3.String())

	require.Eventually(t, func() bool { return b.running.Load() }, time.Second, time.Millisecond)
	require.ErrorIs(t, b.Run(ctx), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-errc)
}
