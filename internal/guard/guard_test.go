// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/trialdesk/internal/session"
)

type fakeChecker struct {
	valid      atomic.Bool
	panicCheck bool
	// afterTerminate runs at the end of Terminate, outside mu.
	afterTerminate func()

	mu         sync.Mutex
	terminated []session.Reason
}

func (f *fakeChecker) IsAuthenticated() bool {
	if f.panicCheck {
		panic("store exploded")
	}
	return f.valid.Load()
}

func (f *fakeChecker) Terminate(reason session.Reason) {
	f.mu.Lock()
	f.terminated = append(f.terminated, reason)
	f.valid.Store(false)
	f.mu.Unlock()

	if f.afterTerminate != nil {
		f.afterTerminate()
	}
}

func (f *fakeChecker) terminations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.terminated)
}

func TestRequireAuth_Valid(t *testing.T) {
	c := &fakeChecker{}
	c.valid.Store(true)

	g := New(c, Options{})
	assert.True(t, g.RequireAuth())
	assert.Equal(t, 0, c.terminations())
	assert.Equal(t, DefaultInterval, g.Interval())
}

func TestRequireAuth_InvalidTerminates(t *testing.T) {
	c := &fakeChecker{}

	g := New(c, Options{})
	assert.False(t, g.RequireAuth())
	require.Equal(t, 1, c.terminations())
	assert.Equal(t, session.ReasonUnauthenticated, c.terminated[0])
}

func TestRequireAuth_RecoversPanic(t *testing.T) {
	c := &fakeChecker{panicCheck: true}

	g := New(c, Options{})
	assert.NotPanics(t, func() {
		assert.False(t, g.RequireAuth())
	})
}

func TestMount_RechecksEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := &fakeChecker{}
	c.valid.Store(true)

	g := New(c, Options{Interval: time.Minute, Clock: clock})
	unmount := g.Mount()
	defer unmount()

	clock.Advance(time.Minute)
	assert.Equal(t, 0, c.terminations())

	c.valid.Store(false)
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool { return c.terminations() == 1 }, 2*time.Second, time.Millisecond)
}

func TestMount_InvalidOnEntry(t *testing.T) {
	c := &fakeChecker{}
	g := New(c, Options{Clock: clockwork.NewFakeClock()})

	unmount := g.Mount()
	unmount()
	assert.Equal(t, 1, c.terminations())
}

func TestMount_UnmountIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := &fakeChecker{}
	c.valid.Store(true)

	g := New(c, Options{Interval: time.Minute, Clock: clock})
	unmount := g.Mount()
	unmount()
	unmount()

	c.valid.Store(false)
	clock.Advance(5 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, c.terminations())
}

func TestMount_UnmountFromTerminate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := &fakeChecker{}
	c.valid.Store(true)

	var unmount func()
	returned := make(chan struct{})
	c.afterTerminate = func() {
		unmount()
		close(returned)
	}

	g := New(c, Options{Interval: time.Minute, Clock: clock})
	unmount = g.Mount()

	c.valid.Store(false)
	clock.Advance(time.Minute)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("unmount called from Terminate did not return")
	}
	assert.Equal(t, 1, c.terminations())
	unmount()
}

func TestHandleTick(t *testing.T) {
	c := &fakeChecker{}
	c.valid.Store(true)
	g := New(c, Options{Interval: time.Second})

	assert.NotNil(t, g.HandleTick(TickMsg{}))

	c.valid.Store(false)
	assert.Nil(t, g.HandleTick(TickMsg{}))
	assert.Equal(t, 1, c.terminations())
}
