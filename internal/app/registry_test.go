package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock records scheduled callbacks instead of running them.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

func newTestRegistry(t *testing.T) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	return NewRegistry(clock.AfterFunc), clock
}

func TestRegistryEnterIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Start(Giveaway{MessageID: "g1", Duration: time.Minute}, func(string) {}))

	users := []string{"a", "b", "a", "c", "b", "a"}
	var (
		last  Giveaway
		fresh []bool
	)
	for _, u := range users {
		g, added, err := r.Enter("g1", u)
		require.NoError(t, err)
		last = g
		fresh = append(fresh, added)
	}

	assert.Equal(t, []string{"a", "b", "c"}, last.Entrants)
	assert.Equal(t, []bool{true, true, false, true, false, false}, fresh)
}

func TestRegistryConcurrentEntries(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Start(Giveaway{MessageID: "g1", Duration: time.Minute}, func(string) {}))

	var wg sync.WaitGroup
	for i := range 50 {
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := r.Enter("g1", fmt.Sprintf("user-%d", i))
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	g, ok := r.Get("g1")
	require.True(t, ok)
	assert.Len(t, g.Entrants, 50)
}

func TestRegistryTakeRejectsLateEntries(t *testing.T) {
	r, clock := newTestRegistry(t)

	var expired []string
	require.NoError(t, r.Start(Giveaway{MessageID: "g1", Duration: time.Minute}, func(id string) {
		expired = append(expired, id)
	}))
	_, _, err := r.Enter("g1", "a")
	require.NoError(t, err)

	timer := clock.last()
	assert.Equal(t, time.Minute, timer.d)
	timer.f()
	assert.Equal(t, []string{"g1"}, expired)

	g, ok := r.Take("g1")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, g.Entrants)

	_, ok = r.Take("g1")
	assert.False(t, ok)

	_, _, err = r.Enter("g1", "b")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRejectsDuplicateStart(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Start(Giveaway{MessageID: "g1"}, func(string) {}))
	assert.Error(t, r.Start(Giveaway{MessageID: "g1"}, func(string) {}))
}

func TestRegistrySnapshotsAreDetached(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Start(Giveaway{MessageID: "g1"}, func(string) {}))

	g, _, err := r.Enter("g1", "a")
	require.NoError(t, err)
	g.Entrants[0] = "mallory"

	current, ok := r.Get("g1")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, current.Entrants)
}

func TestRegistryStopCancelsTimers(t *testing.T) {
	r, clock := newTestRegistry(t)
	require.NoError(t, r.Start(Giveaway{MessageID: "g1"}, func(string) {}))
	require.NoError(t, r.Start(Giveaway{MessageID: "g2"}, func(string) {}))

	assert.Equal(t, 2, r.Stop())
	assert.Equal(t, 0, r.Len())
	for _, timer := range clock.timers {
		assert.True(t, timer.stopped)
	}
}
