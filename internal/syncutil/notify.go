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

package syncutil

import "context"

// Notifier is a single-slot signal with overwrite semantics. Any number of
// Give calls before a Take collapse into one pending notification.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Give marks the notification pending. It never blocks.
func (n *Notifier) Give() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// TryTake consumes a pending notification without waiting.
func (n *Notifier) TryTake() bool {
	select {
	case <-n.ch:
		return true
	default:
		return false
	}
}

// Take waits for a notification or for ctx to end.
func (n *Notifier) Take(ctx context.Context) error {
	select {
	case <-n.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drops any pending notification.
func (n *Notifier) Clear() {
	n.TryTake()
}

// C exposes the underlying channel for use in select statements. Receiving
// from it consumes the notification.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}
