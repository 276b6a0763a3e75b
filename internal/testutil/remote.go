package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/stats"
)

// ErrRemoteDown is returned by a FakeRemote that has been told to fail.
var ErrRemoteDown = errors.New("remote unavailable")

// FakeRemote is an in-memory Remote Result Service for one player.
//
// FailAfter controls failures: a negative value never fails, zero fails
// every call, n succeeds n more calls and then fails.
type FakeRemote struct {
	mu        sync.Mutex
	failAfter int
	progress  map[string]progress.Snapshot
	events    []progress.Event
	seen      map[string]bool
	counters  map[game.Kind]*stats.Counters
	Saves     []progress.Snapshot
}

// NewFakeRemote returns a healthy fake.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		failAfter: -1,
		progress:  make(map[string]progress.Snapshot),
		seen:      make(map[string]bool),
		counters:  make(map[game.Kind]*stats.Counters),
	}
}

// FailAfter makes the fake fail once n more calls have succeeded.
func (f *FakeRemote) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = n
}

// Heal stops injected failures.
func (f *FakeRemote) Heal() { f.FailAfter(-1) }

func (f *FakeRemote) fail() bool {
	if f.failAfter < 0 {
		return false
	}
	if f.failAfter == 0 {
		return true
	}
	f.failAfter--
	return false
}

func (f *FakeRemote) SaveProgress(_ context.Context, snap progress.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail() {
		return game.Unavailable(snap.Game(), "save progress", ErrRemoteDown)
	}
	f.progress[string(snap.Game())+"/"+snap.Day()] = snap
	f.Saves = append(f.Saves, snap)
	return nil
}

func (f *FakeRemote) LoadProgress(_ context.Context, kind game.Kind, date string) (progress.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail() {
		return nil, false, game.Unavailable(kind, "load progress", ErrRemoteDown)
	}
	snap, ok := f.progress[string(kind)+"/"+date]
	return snap, ok, nil
}

// RecordResult applies each event id at most once.
func (f *FakeRemote) RecordResult(_ context.Context, e progress.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail() {
		return game.Unavailable(e.Kind, "record result", ErrRemoteDown)
	}
	if f.seen[e.ID] {
		return nil
	}
	f.seen[e.ID] = true
	f.events = append(f.events, e)
	c, ok := f.counters[e.Kind]
	if !ok {
		c = &stats.Counters{}
		f.counters[e.Kind] = c
	}
	c.Record(e.Result())
	return nil
}

func (f *FakeRemote) Stats(_ context.Context, kind game.Kind) (stats.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail() {
		return stats.Summary{}, game.Unavailable(kind, "stats", ErrRemoteDown)
	}
	var c stats.Counters
	if got, ok := f.counters[kind]; ok {
		c = *got
	}
	return stats.Summarize(kind, c), nil
}

// Events returns the delivered events in arrival order.
func (f *FakeRemote) Events() []progress.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progress.Event(nil), f.events...)
}

// Snapshot returns the stored snapshot for kind and date.
func (f *FakeRemote) Snapshot(kind game.Kind, date string) (progress.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.progress[string(kind)+"/"+date]
	return snap, ok
}
