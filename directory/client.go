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

// Package directory talks to the kiosk backend, a Firebase Realtime
// Database reached over its REST API. It looks users up, appends check-in
// and check-out entries to the activity log and keeps the kiosk's own
// record fresh.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	kiosk "github.com/ZaparooProject/go-kiosk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Activity log actions.
const (
	ActionCheckIn  = "Check-In"
	ActionCheckOut = "Check-Out"
)

const (
	// DefaultTimeout bounds one backend request.
	DefaultTimeout = 10 * time.Second

	logKeyLayout  = "20060102150405"
	stampLayout   = "20060102_150405"
	maxBody       = 64 << 10
	maxErrBody    = 256
	readyMinDelay = 500 * time.Millisecond
	readyMaxDelay = 10 * time.Second
	tracerName    = "github.com/ZaparooProject/go-kiosk/directory"
)

// KioskInfo identifies this kiosk to the backend.
type KioskInfo struct {
	ID              string
	Name            string
	Location        string
	FirmwareVersion string
}

// Options configure a Client.
type Options struct {
	HTTPClient *http.Client
	// TimeZone is used for activity log keys and timestamps. Defaults to
	// UTC.
	TimeZone *time.Location
	// Ledger mirrors every activity write locally. Optional.
	Ledger *Ledger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
	Now            func() time.Time
	Kiosk          KioskInfo
	BaseURL        string
	// AuthToken is sent as the auth query parameter when set.
	AuthToken string
	Timeout   time.Duration
}

// ActivityEntry is one activity log document.
type ActivityEntry struct {
	Action    string `json:"action"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId"`
}

// Client is a kiosk.Directory, kiosk.StatusPublisher and
// kiosk.Connectivity backed by the REST API.
type Client struct {
	http   *http.Client
	tz     *time.Location
	ledger *Ledger
	tracer trace.Tracer
	now    func() time.Time
	base   *url.URL
	kiosk  KioskInfo
	auth   string
}

var (
	_ kiosk.Directory       = (*Client)(nil)
	_ kiosk.StatusPublisher = (*Client)(nil)
	_ kiosk.Connectivity    = (*Client)(nil)
)

// New creates a Client for the database at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("%w: backend base URL is required", kiosk.ErrNotConfigured)
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend URL %q must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	tz := opts.TimeZone
	if tz == nil {
		tz = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		http:   hc,
		tz:     tz,
		ledger: opts.Ledger,
		tracer: tp.Tracer(tracerName),
		now:    now,
		base:   base,
		kiosk:  opts.Kiosk,
		auth:   opts.AuthToken,
	}, nil
}

type userDoc struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	Role          *string `json:"role"`
	ActiveUser    *string `json:"activeUser"`
	CheckInStatus *string `json:"checkInStatus"`
}

// Lookup fetches the directory record of id. A user missing from the
// database yields kiosk.ErrUserNotFound; every other failure wraps
// kiosk.ErrLookupFailed.
func (c *Client) Lookup(ctx context.Context, id string) (kiosk.DirectoryRecord, error) {
	if err := kiosk.ValidateIdentity(id); err != nil {
		return kiosk.DirectoryRecord{}, fmt.Errorf("%w: %w", kiosk.ErrLookupFailed, err)
	}

	var doc *userDoc
	if err := c.do(ctx, "lookup", http.MethodGet, "/users/"+id, nil, &doc); err != nil {
		return kiosk.DirectoryRecord{}, fmt.Errorf("%w: %w", kiosk.ErrLookupFailed, err)
	}
	if doc == nil {
		return kiosk.DirectoryRecord{}, fmt.Errorf("%w: %s", kiosk.ErrUserNotFound, id)
	}

	fields := []struct {
		v    *string
		name string
	}{
		{doc.FirstName, "firstName"},
		{doc.LastName, "lastName"},
		{doc.Role, "role"},
		{doc.ActiveUser, "activeUser"},
		{doc.CheckInStatus, "checkInStatus"},
	}
	for _, f := range fields {
		if f.v == nil {
			return kiosk.DirectoryRecord{}, fmt.Errorf("%w: user %s has no %s", kiosk.ErrLookupFailed, id, f.name)
		}
	}

	rec := kiosk.DirectoryRecord{
		FirstName:     *doc.FirstName,
		LastName:      *doc.LastName,
		Role:          kiosk.Role(*doc.Role),
		ActiveUser:    *doc.ActiveUser,
		CheckInStatus: *doc.CheckInStatus,
	}
	slog.Debug("directory lookup", "id", id, "role", rec.Role, "status", rec.CheckInStatus)
	return rec, nil
}

// RecordCheckIn appends a check-in for id to the activity log.
func (c *Client) RecordCheckIn(ctx context.Context, id string) error {
	return c.record(ctx, ActionCheckIn, id)
}

// RecordCheckOut appends a check-out for id to the activity log.
func (c *Client) RecordCheckOut(ctx context.Context, id string) error {
	return c.record(ctx, ActionCheckOut, id)
}

// TODO: log keys have one-second resolution, so two activity writes in the
// same second overwrite each other. Switch to POST with server-side push IDs
// once the dashboard reads those.
func (c *Client) record(ctx context.Context, action, id string) error {
	now := c.now().In(c.tz)
	entry := ActivityEntry{
		Action:    action,
		Location:  c.kiosk.Location,
		Timestamp: now.Format(stampLayout),
		UserID:    id,
	}
	key := now.Format(logKeyLayout)

	var ledgerID string
	if c.ledger != nil {
		var err error
		ledgerID, err = c.ledger.Append(ctx, LedgerEntry{
			UserID:     id,
			Action:     action,
			Location:   entry.Location,
			LogKey:     key,
			RecordedAt: now,
		})
		if err != nil {
			slog.Warn("ledger append failed", "id", id, "action", action, "error", err)
		}
	}

	err := c.do(ctx, "record", http.MethodPut, "/activityLog/"+key, entry, nil)
	if ledgerID != "" {
		if lerr := c.ledger.MarkOutcome(ctx, ledgerID, err); lerr != nil {
			slog.Warn("ledger update failed", "entry", ledgerID, "error", lerr)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %s for %s: %w", kiosk.ErrRecordFailed, action, id, err)
	}
	slog.Info("activity recorded", "action", action, "id", id, "key", key)
	return nil
}

type statusDoc struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// PublishStatus stores msg as the kiosk's latest status.
func (c *Client) PublishStatus(ctx context.Context, msg string) error {
	if c.kiosk.ID == "" {
		return fmt.Errorf("%w: kiosk ID", kiosk.ErrNotConfigured)
	}
	doc := statusDoc{Message: msg, Timestamp: c.now().In(c.tz).Format(stampLayout)}
	return c.do(ctx, "status", http.MethodPut, "/kiosks/"+c.kiosk.ID+"/status", doc, nil)
}

type heartbeatDoc struct {
	Name            string `json:"name"`
	Location        string `json:"location"`
	FirmwareVersion string `json:"firmwareVersion"`
	LastSeen        string `json:"lastSeen"`
	Active          bool   `json:"active"`
}

// Heartbeat refreshes the kiosk's record.
func (c *Client) Heartbeat(ctx context.Context) error {
	if c.kiosk.ID == "" {
		return fmt.Errorf("%w: kiosk ID", kiosk.ErrNotConfigured)
	}
	doc := heartbeatDoc{
		Name:            c.kiosk.Name,
		Location:        c.kiosk.Location,
		FirmwareVersion: c.kiosk.FirmwareVersion,
		LastSeen:        c.now().In(c.tz).Format(stampLayout),
		Active:          true,
	}
	return c.do(ctx, "heartbeat", http.MethodPatch, "/kiosks/"+c.kiosk.ID, doc, nil)
}

// RunHeartbeat sends a heartbeat every interval until ctx ends.
func (c *Client) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := c.Heartbeat(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("heartbeat failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// WaitReady blocks until the backend answers. Network failures and server
// errors are retried with backoff. Any other HTTP failure, such as a
// rejected auth token, is returned.
func (c *Client) WaitReady(ctx context.Context) error {
	delay := readyMinDelay
	for attempt := 1; ; attempt++ {
		var shallow json.RawMessage
		err := c.do(ctx, "ready", http.MethodGet, "", nil, &shallow)
		var herr *HTTPError
		switch {
		case err == nil:
			slog.Info("backend reachable", "attempts", attempt)
			return nil
		case errors.As(err, &herr) && !herr.Temporary():
			return err
		}
		slog.Debug("backend not reachable yet", "attempt", attempt, "retry_in", delay, "error", err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(delay*2, readyMaxDelay)
	}
}

func (c *Client) url(path string) string {
	u := *c.base
	q := url.Values{}
	if path == "" {
		u.Path = c.base.Path + "/.json"
		q.Set("shallow", "true")
	} else {
		u.Path = c.base.Path + path + ".json"
	}
	if c.auth != "" {
		q.Set("auth", c.auth)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "directory."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			attribute.String("directory.path", path),
		))
	defer span.End()

	status, err := c.roundTrip(ctx, op, method, path, body, out)
	if status != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s request: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rd)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &HTTPError{Op: op, Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return resp.StatusCode, &HTTPError{
			Op:         op,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", op, err)
	}
	return resp.StatusCode, nil
}
