// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

// Package geoloc manages the position permission lifecycle: acquisition,
// bounded waits, short-lived caching of the last fix and a typed error
// taxonomy for everything that can go wrong between the device and a usable
// reference coordinate.
package geoloc

import (
	"context"
	"sync"
	"time"

	"github.com/vireak/prasat/spatial"
)

// State is the position permission lifecycle state.
type State int

const (
	StateUnrequested State = iota
	StateRequesting
	StateGranted
	StateDenied
	StateUnavailable
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateUnrequested:
		return "unrequested"
	case StateRequesting:
		return "requesting"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	case StateUnavailable:
		return "unavailable"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Permission is what the platform reports about location access before any
// acquisition is attempted.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionPrompt
	PermissionGranted
	PermissionDenied
)

// Fix is a raw position reading from a source.
type Fix struct {
	Point     spatial.Coordinate
	AccuracyM float64
}

// PositionSource obtains position fixes from a device or platform API.
// Position returns a typed *PositionError on failure. Permission reports the
// current grant state without triggering a prompt.
type PositionSource interface {
	Position(ctx context.Context) (Fix, error)
	Permission(ctx context.Context) Permission
}

// Reference is the user's acquired position plus its provenance.
type Reference struct {
	Point      spatial.Coordinate `json:"point"`
	AcquiredAt time.Time          `json:"acquired_at"`
	AccuracyM  float64            `json:"accuracy_m"`
	Source     string             `json:"source"`
}

const (
	defaultAcquireTimeout = 10 * time.Second
	defaultFreshFor       = 5 * time.Minute
)

type inflight struct {
	done chan struct{}
	ref  *Reference
	err  error
}

// Session tracks the position permission state machine and caches the last
// acquired fix for a bounded freshness window. Safe for concurrent use, with
// at most one acquisition in flight: concurrent Request calls coalesce onto
// the pending read instead of issuing duplicate hardware reads.
type Session struct {
	source  PositionSource
	timeout time.Duration
	fresh   time.Duration
	now     func() time.Time

	mu         sync.Mutex
	state      State
	ref        *Reference
	generation uint64
	pending    *inflight
}

// NewSession builds a session around a position source with the default 10
// second acquisition timeout and 5 minute fix freshness window.
func NewSession(source PositionSource) *Session {
	return &Session{
		source:  source,
		timeout: defaultAcquireTimeout,
		fresh:   defaultFreshFor,
		now:     time.Now,
		state:   StateUnrequested,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Generation returns a counter that increments on every successful
// acquisition and on Reset. Callers snapshot it before starting a nearby
// search and discard the result if it moved, so a superseded reference never
// renders stale output.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

// Reference returns the cached position if it is still within the freshness
// window, or nil.
func (s *Session) Reference() *Reference {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.freshReferenceLocked()
}

func (s *Session) freshReferenceLocked() *Reference {
	if s.ref == nil {
		return nil
	}

	if s.now().Sub(s.ref.AcquiredAt) >= s.fresh {
		return nil
	}

	return s.ref
}

// Reset discards the cached position and returns the session to the
// unrequested state. Used on permission revocation or an explicit user reset.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ref = nil
	s.state = StateUnrequested
	s.generation++
}

// Request acquires the current position. A fix still inside the freshness
// window is returned without touching the device. Otherwise one acquisition
// runs with a bounded wait, and any concurrent Request joins it rather than
// issuing a second read. The passed context only bounds this caller's wait,
// abandoning it does not cancel the shared acquisition.
func (s *Session) Request(ctx context.Context) (*Reference, error) {
	s.mu.Lock()

	if ref := s.freshReferenceLocked(); ref != nil {
		s.mu.Unlock()

		return ref, nil
	}

	if s.pending == nil {
		s.state = StateRequesting
		s.pending = &inflight{done: make(chan struct{})}

		go s.acquire(s.pending)
	}

	in := s.pending
	s.mu.Unlock()

	select {
	case <-in.done:
		return in.ref, in.err
	case <-ctx.Done():
		return nil, classify(ctx.Err())
	}
}

// AutoAcquire requests the position only when the platform reports permission
// already granted, so page load never triggers a prompt. It reports whether
// an acquisition was attempted.
func (s *Session) AutoAcquire(ctx context.Context) (*Reference, bool, error) {
	if s.source.Permission(ctx) != PermissionGranted {
		return nil, false, nil
	}

	ref, err := s.Request(ctx)

	return ref, true, err
}

func (s *Session) acquire(in *inflight) {
	// Detached from caller contexts so coalesced waiters share one read.
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	fix, err := s.source.Position(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil

	if err != nil {
		posErr := classify(err)
		in.err = posErr
		s.state = failureState(posErr)
		close(in.done)

		return
	}

	s.state = StateGranted
	s.ref = &Reference{
		Point:      fix.Point,
		AcquiredAt: s.now(),
		AccuracyM:  fix.AccuracyM,
		Source:     "device",
	}
	s.generation++

	in.ref = s.ref
	close(in.done)
}

func failureState(err *PositionError) State {
	switch err.Type {
	case ErrorPermissionDenied:
		return StateDenied
	case ErrorTimeout:
		return StateTimedOut
	default:
		return StateUnavailable
	}
}
