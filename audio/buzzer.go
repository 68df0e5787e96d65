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

// Package audio plays a short melody on a piezo buzzer for each kiosk state.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// ErrAlreadyRunning is returned by a second concurrent Run.
var ErrAlreadyRunning = errors.New("audio: buzzer already running")

// Pin is the output the buzzer is wired to. gpio.PinIO satisfies it on
// boards with hardware PWM.
type Pin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// Buzzer plays melodies one at a time. Announce never blocks: a state
// announced while another melody is queued replaces it.
type Buzzer struct {
	pin     Pin
	sleep   func(ctx context.Context, d time.Duration) error
	queue   chan Melody
	running atomic.Bool
}

// Open initializes the periph host and looks the pin up by name, for
// example "GPIO18" or "PWM0".
func Open(pinName string) (*Buzzer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, fmt.Errorf("buzzer pin %q not found", pinName)
	}
	return New(p), nil
}

// New drives pin.
func New(pin Pin) *Buzzer {
	return &Buzzer{
		pin:   pin,
		sleep: sleepCtx,
		queue: make(chan Melody, 1),
	}
}

// Announce implements kiosk.Announcer.
func (b *Buzzer) Announce(_ context.Context, a kiosk.Announcement) {
	m, ok := MelodyFor(a)
	if !ok {
		return
	}
	for {
		select {
		case b.queue <- m:
			return
		default:
		}
		select {
		case <-b.queue:
		default:
		}
	}
}

// Run plays queued melodies until ctx ends.
func (b *Buzzer) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-b.queue:
			if err := b.Play(ctx, m); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("buzzer playback failed", "error", err)
			}
		}
	}
}

// Play drives the pin through m and leaves it low.
func (b *Buzzer) Play(ctx context.Context, m Melody) (err error) {
	defer func() {
		if offErr := b.pin.Out(gpio.Low); offErr != nil && err == nil {
			err = fmt.Errorf("silence buzzer: %w", offErr)
		}
	}()

	duty := gpio.Duty(float64(gpio.DutyMax) * float64(m.Volume))
	for _, note := range m.Notes {
		if note.Pitch == Rest {
			if err := b.pin.Out(gpio.Low); err != nil {
				return fmt.Errorf("rest: %w", err)
			}
		} else if err := b.pin.PWM(duty, note.Pitch); err != nil {
			return fmt.Errorf("play %s: %w", note.Pitch, err)
		}
		if err := b.sleep(ctx, note.Duration); err != nil {
			return err
		}
		if err := b.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("gap: %w", err)
		}
		if err := b.sleep(ctx, Gap); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
