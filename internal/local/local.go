// Package local is the Local Durable Store: per-date progress snapshots, a
// pending-event queue per game, and the counters that back signed-out
// stats. It sits on any store.KV.
//
// Reads never fail on bad data. A record that does not decode or validate
// is treated as absent and logged at debug level.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/stats"
	"github.com/roach88/dailies/internal/store"
)

// DefaultProgressCap is how many dates of progress are kept per game.
const DefaultProgressCap = 14

// Store is the Local Durable Store.
type Store struct {
	kv     store.KV
	cap    int
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithProgressCap sets how many dates of progress are kept per game.
// Values below one keep the default.
func WithProgressCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithLogger sets the logger used for discarded records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Store over kv.
func New(kv store.KV, opts ...Option) *Store {
	s := &Store{kv: kv, cap: DefaultProgressCap, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func progressPrefix(kind game.Kind) string {
	return "progress/" + string(kind) + "/"
}

func progressKey(kind game.Kind, date string) string {
	return progressPrefix(kind) + date
}

func eventsKey(kind game.Kind) string {
	return "events/" + string(kind)
}

func countersKey(kind game.Kind) string {
	return "counters/" + string(kind)
}

// SaveProgress replaces the snapshot for its game and date, then evicts the
// least recently updated dates beyond the cap.
func (s *Store) SaveProgress(ctx context.Context, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return game.InputInvalid(snap.Game(), "invalid snapshot: %v", err)
	}
	data, err := progress.Encode(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, progressKey(snap.Game(), snap.Day()), data); err != nil {
		return fmt.Errorf("save %s progress: %w", snap.Game(), err)
	}
	return s.evict(ctx, snap.Game())
}

func (s *Store) evict(ctx context.Context, kind game.Kind) error {
	all, err := s.AllProgress(ctx, kind)
	if err != nil {
		return err
	}
	if len(all) <= s.cap {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Stamp() > all[j].Stamp()
	})
	for _, snap := range all[s.cap:] {
		if err := s.kv.Delete(ctx, progressKey(kind, snap.Day())); err != nil {
			return fmt.Errorf("evict %s progress %s: %w", kind, snap.Day(), err)
		}
		s.logger.Debug("evicted local progress", "kind", kind, "date", snap.Day())
	}
	return nil
}

// Progress returns the snapshot for kind and date. Missing and corrupt
// records both report false.
func (s *Store) Progress(ctx context.Context, kind game.Kind, date string) (progress.Snapshot, bool, error) {
	if !game.ValidDate(date) {
		return nil, false, nil
	}
	key := progressKey(kind, date)
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load %s progress: %w", kind, err)
	}
	if !ok {
		return nil, false, nil
	}
	snap, err := s.decode(kind, date, data)
	if err != nil {
		s.logger.Debug("discarding local progress", "key", key, "error", err)
		return nil, false, nil
	}
	return snap, true, nil
}

func (s *Store) decode(kind game.Kind, date string, data []byte) (progress.Snapshot, error) {
	snap, err := progress.Decode(kind, data)
	if err != nil {
		return nil, err
	}
	if snap.Day() != date {
		return nil, game.Corrupt(kind, fmt.Sprintf("record for %s stored under %s", snap.Day(), date), nil)
	}
	return snap, nil
}

// AllProgress returns every readable snapshot for kind, oldest date first.
func (s *Store) AllProgress(ctx context.Context, kind game.Kind) ([]progress.Snapshot, error) {
	keys, err := s.kv.Keys(ctx, progressPrefix(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s progress: %w", kind, err)
	}
	out := make([]progress.Snapshot, 0, len(keys))
	for _, key := range keys {
		date := strings.TrimPrefix(key, progressPrefix(kind))
		snap, ok, err := s.Progress(ctx, kind, date)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Day() < out[j].Day()
	})
	return out, nil
}

// ClearProgress removes the snapshot for date, or every snapshot for kind
// when date is empty.
func (s *Store) ClearProgress(ctx context.Context, kind game.Kind, date string) error {
	if date != "" {
		if err := s.kv.Delete(ctx, progressKey(kind, date)); err != nil {
			return fmt.Errorf("clear %s progress %s: %w", kind, date, err)
		}
		return nil
	}
	keys, err := s.kv.Keys(ctx, progressPrefix(kind))
	if err != nil {
		return fmt.Errorf("list %s progress: %w", kind, err)
	}
	for _, key := range keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s progress: %w", kind, err)
		}
	}
	return nil
}

// Enqueue appends a pending event to its game's queue.
func (s *Store) Enqueue(ctx context.Context, e progress.Event) error {
	if err := e.Validate(); err != nil {
		return game.InputInvalid(e.Kind, "invalid event: %v", err)
	}
	events, err := s.Events(ctx, e.Kind)
	if err != nil {
		return err
	}
	return s.ReplaceEvents(ctx, e.Kind, append(events, e))
}

// Events returns the queued events for kind in the order they were added.
// A corrupt queue reads as empty.
func (s *Store) Events(ctx context.Context, kind game.Kind) ([]progress.Event, error) {
	data, ok, err := s.kv.Get(ctx, eventsKey(kind))
	if err != nil {
		return nil, fmt.Errorf("load %s events: %w", kind, err)
	}
	if !ok {
		return nil, nil
	}
	events, err := progress.DecodeEvents(kind, data)
	if err != nil {
		s.logger.Debug("discarding local event queue", "kind", kind, "error", err)
		return nil, nil
	}
	return events, nil
}

// ReplaceEvents overwrites the queue for kind. An empty queue is deleted.
func (s *Store) ReplaceEvents(ctx context.Context, kind game.Kind, events []progress.Event) error {
	if len(events) == 0 {
		if err := s.kv.Delete(ctx, eventsKey(kind)); err != nil {
			return fmt.Errorf("clear %s events: %w", kind, err)
		}
		return nil
	}
	data, err := progress.EncodeEvents(events)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, eventsKey(kind), data); err != nil {
		return fmt.Errorf("save %s events: %w", kind, err)
	}
	return nil
}

// AddCounters tallies a terminal result into the signed-out counters.
func (s *Store) AddCounters(ctx context.Context, r game.Result) error {
	c, err := s.Counters(ctx, r.Kind)
	if err != nil {
		return err
	}
	c.Record(r)
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode %s counters: %w", r.Kind, err)
	}
	if err := s.kv.Set(ctx, countersKey(r.Kind), data); err != nil {
		return fmt.Errorf("save %s counters: %w", r.Kind, err)
	}
	return nil
}

// Counters returns the signed-out counters for kind. Corrupt counters
// read as zero.
func (s *Store) Counters(ctx context.Context, kind game.Kind) (stats.Counters, error) {
	data, ok, err := s.kv.Get(ctx, countersKey(kind))
	if err != nil {
		return stats.Counters{}, fmt.Errorf("load %s counters: %w", kind, err)
	}
	if !ok {
		return stats.Counters{}, nil
	}
	var c stats.Counters
	if err := json.Unmarshal(data, &c); err != nil || c.Played < 0 || c.Completed < 0 || c.Failed < 0 {
		s.logger.Debug("discarding local counters", "kind", kind, "error", err)
		return stats.Counters{}, nil
	}
	return c, nil
}

// Check reports every stored record that would be discarded on read. It is
// a diagnostic; normal reads already skip these records.
func (s *Store) Check(ctx context.Context) ([]error, error) {
	var problems []error
	for _, kind := range game.Kinds {
		keys, err := s.kv.Keys(ctx, progressPrefix(kind))
		if err != nil {
			return nil, fmt.Errorf("list %s progress: %w", kind, err)
		}
		for _, key := range keys {
			data, ok, err := s.kv.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", key, err)
			}
			if !ok {
				continue
			}
			date := strings.TrimPrefix(key, progressPrefix(kind))
			if _, err := s.decode(kind, date, data); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", key, err))
			}
		}

		data, ok, err := s.kv.Get(ctx, eventsKey(kind))
		if err != nil {
			return nil, fmt.Errorf("load %s events: %w", kind, err)
		}
		if ok {
			if _, err := progress.DecodeEvents(kind, data); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", eventsKey(kind), err))
			}
		}
	}
	return problems, nil
}
