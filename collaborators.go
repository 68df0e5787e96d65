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

package kiosk

import "context"

// Announcer receives every state change. Implementations must return
// promptly; the caller bounds ctx.
type Announcer interface {
	Announce(ctx context.Context, a Announcement)
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(ctx context.Context, a Announcement)

// Announce calls f.
func (f AnnouncerFunc) Announce(ctx context.Context, a Announcement) {
	f(ctx, a)
}

// Announcers fans one announcement out to several sinks in order.
type Announcers []Announcer

// Announce calls every sink.
func (as Announcers) Announce(ctx context.Context, a Announcement) {
	for _, an := range as {
		if an != nil {
			an.Announce(ctx, a)
		}
	}
}

// ProximitySensor exposes the presence level of a proximity detector.
type ProximitySensor interface {
	Present() bool
}

// Connectivity blocks until the network the directory lives on is usable.
type Connectivity interface {
	WaitReady(ctx context.Context) error
}

// StatusPublisher posts short human readable status lines to the
// operator's message bus.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg string) error
}

// Restarter restarts the kiosk process.
type Restarter interface {
	Restart() error
}

// RestarterFunc adapts a function to Restarter.
type RestarterFunc func() error

// Restart calls f.
func (f RestarterFunc) Restart() error {
	return f()
}
