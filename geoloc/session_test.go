// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package geoloc

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vireak/prasat/spatial"
)

var phnomPenh = spatial.Coordinate{Lat: 11.5564, Lng: 104.9282}

type fakeSource struct {
	fix        Fix
	err        error
	permission Permission
	calls      atomic.Int64
	block      chan struct{}
}

func (f *fakeSource) Position(ctx context.Context) (Fix, error) {
	f.calls.Add(1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Fix{}, ctx.Err()
		}
	}

	if f.err != nil {
		return Fix{}, f.err
	}

	return f.fix, nil
}

func (f *fakeSource) Permission(ctx context.Context) Permission {
	return f.permission
}

func TestRequestGranted(t *testing.T) {
	source := &fakeSource{fix: Fix{Point: phnomPenh, AccuracyM: 25}}
	session := NewSession(source)

	assert.Equal(t, StateUnrequested, session.State())

	ref, err := session.Request(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ref)

	assert.Equal(t, phnomPenh, ref.Point)
	assert.Equal(t, 25.0, ref.AccuracyM)
	assert.Equal(t, "device", ref.Source)
	assert.False(t, ref.AcquiredAt.IsZero())
	assert.Equal(t, StateGranted, session.State())
}

func TestRequestReusesFreshFix(t *testing.T) {
	source := &fakeSource{fix: Fix{Point: phnomPenh}}
	session := NewSession(source)

	base := time.Now()
	session.now = func() time.Time { return base }

	first, err := session.Request(context.Background())
	require.NoError(t, err)

	// Four minutes later the fix is still fresh and no device read happens.
	session.now = func() time.Time { return base.Add(4 * time.Minute) }

	second, err := session.Request(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, source.calls.Load())

	// Past the window a new read is issued.
	session.now = func() time.Time { return base.Add(6 * time.Minute) }

	_, err = session.Request(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, source.calls.Load())
}

func TestRequestCoalescesConcurrentCalls(t *testing.T) {
	source := &fakeSource{
		fix:   Fix{Point: phnomPenh},
		block: make(chan struct{}),
	}
	session := NewSession(source)

	const waiters = 5

	var wg sync.WaitGroup

	refs := make([]*Reference, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			ref, err := session.Request(context.Background())
			require.NoError(t, err)
			refs[i] = ref
		}(i)
	}

	// Let all waiters pile onto the pending read, then release it.
	assert.Eventually(t, func() bool {
		return session.State() == StateRequesting
	}, time.Second, time.Millisecond)

	close(source.block)
	wg.Wait()

	assert.EqualValues(t, 1, source.calls.Load())

	for _, ref := range refs {
		assert.Same(t, refs[0], ref)
	}
}

func TestRequestPermissionDenied(t *testing.T) {
	source := &fakeSource{err: NewPermissionDenied(nil)}
	session := NewSession(source)

	ref, err := session.Request(context.Background())
	require.Error(t, err)
	assert.Nil(t, ref)
	assert.True(t, IsPermissionDenied(err))
	assert.Equal(t, StateDenied, session.State())

	// Denied is re-requestable, the device may re-prompt.
	source.err = nil
	source.fix = Fix{Point: phnomPenh}

	ref, err = session.Request(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, StateGranted, session.State())
}

func TestRequestFailureStates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantState State
	}{
		{"permission denied", NewPermissionDenied(nil), StateDenied},
		{"position unavailable", NewPositionUnavailable(nil), StateUnavailable},
		{"not supported", NewNotSupported(), StateUnavailable},
		{"untyped failure", assert.AnError, StateUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession(&fakeSource{err: tt.err})

			ref, err := session.Request(context.Background())
			require.Error(t, err)
			assert.Nil(t, ref)
			assert.Equal(t, tt.wantState, session.State())
		})
	}
}

func TestRequestPositionUnavailable(t *testing.T) {
	source := &fakeSource{err: NewPositionUnavailable(nil)}
	session := NewSession(source)

	_, err := session.Request(context.Background())
	require.Error(t, err)
	assert.True(t, IsPositionUnavailable(err))
	assert.Equal(t, StateUnavailable, session.State())
}

func TestRequestTimeout(t *testing.T) {
	source := &fakeSource{block: make(chan struct{})}
	defer close(source.block)

	session := NewSession(source)
	session.timeout = 10 * time.Millisecond

	_, err := session.Request(context.Background())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, StateTimedOut, session.State())
}

func TestRequestCallerContextBoundsOnlyItsWait(t *testing.T) {
	source := &fakeSource{
		fix:   Fix{Point: phnomPenh},
		block: make(chan struct{}),
	}
	session := NewSession(source)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := session.Request(ctx)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	// The shared acquisition keeps running and later callers get its result.
	close(source.block)

	ref, err := session.Request(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.EqualValues(t, 1, source.calls.Load())
}

func TestReset(t *testing.T) {
	source := &fakeSource{fix: Fix{Point: phnomPenh}}
	session := NewSession(source)

	_, err := session.Request(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session.Reference())

	gen := session.Generation()

	session.Reset()

	assert.Nil(t, session.Reference())
	assert.Equal(t, StateUnrequested, session.State())
	assert.Greater(t, session.Generation(), gen)
}

func TestGenerationAdvancesOnAcquisition(t *testing.T) {
	source := &fakeSource{fix: Fix{Point: phnomPenh}}
	session := NewSession(source)
	session.fresh = 0 // force a fresh read on every request

	gen := session.Generation()

	_, err := session.Request(context.Background())
	require.NoError(t, err)
	assert.Greater(t, session.Generation(), gen)
}

func TestAutoAcquire(t *testing.T) {
	source := &fakeSource{fix: Fix{Point: phnomPenh}, permission: PermissionPrompt}
	session := NewSession(source)

	ref, attempted, err := session.AutoAcquire(context.Background())
	require.NoError(t, err)
	assert.False(t, attempted)
	assert.Nil(t, ref)
	assert.EqualValues(t, 0, source.calls.Load())

	source.permission = PermissionGranted

	ref, attempted, err = session.AutoAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, attempted)
	require.NotNil(t, ref)
	assert.Equal(t, phnomPenh, ref.Point)
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, IsNotSupported(NewNotSupported()))
	assert.True(t, IsTimeout(classify(context.DeadlineExceeded)))
	assert.False(t, IsPermissionDenied(nil))

	unknown := classify(assert.AnError)
	assert.Equal(t, ErrorUnknown, unknown.Type)
	assert.ErrorIs(t, unknown, assert.AnError)
}
