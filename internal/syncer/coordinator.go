package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/local"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/stats"
)

// ErrSignedOut is returned by operations that need a signed-in player.
var ErrSignedOut = errors.New("not signed in")

// Remote is the Remote Result Service as seen by the Coordinator. Every
// call is scoped to the signed-in player by the implementation.
type Remote interface {
	SaveProgress(ctx context.Context, snap progress.Snapshot) error
	LoadProgress(ctx context.Context, kind game.Kind, date string) (progress.Snapshot, bool, error)
	// RecordResult delivers a terminal result. The event id is the
	// idempotency key for the delivery.
	RecordResult(ctx context.Context, e progress.Event) error
	Stats(ctx context.Context, kind game.Kind) (stats.Summary, error)
}

// Coordinator routes persistence according to the authentication state.
type Coordinator struct {
	mu     sync.Mutex
	local  *local.Store
	remote Remote
	auth   Auth
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator sets the source of event ids.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

// New returns a Coordinator in the unknown authentication state.
func New(l *local.Store, r Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		local:  l,
		remote: r,
		auth:   Unknown(),
		logger: slog.Default(),
		now:    time.Now,
		newID:  newEventID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newEventID returns a time-ordered UUIDv7 string.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Auth returns the current authentication state.
func (c *Coordinator) Auth() Auth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

// SetAuth applies a resolved authentication state. Becoming signed in,
// from boot or from signed out, flushes everything queued locally; the
// report is nil when no flush ran.
func (c *Coordinator) SetAuth(ctx context.Context, a Auth) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.auth
	c.auth = a
	c.logger.Debug("auth transition", "from", prev.String(), "to", a.String())

	if !a.IsSignedIn() || prev == a {
		return nil, nil
	}
	report, err := c.flushLocked(ctx)
	return &report, err
}

// KindReport is the flush outcome for one game.
type KindReport struct {
	Kind     game.Kind   `json:"kind"`
	Progress FlushReport `json:"progress"`
	Events   FlushReport `json:"events"`
}

// Report is the outcome of flushing every game.
type Report struct {
	Kinds []KindReport `json:"kinds"`
}

// Totals sums the report across games.
func (r Report) Totals() (flushed, remaining int) {
	for _, k := range r.Kinds {
		flushed += k.Progress.Flushed + k.Events.Flushed
		remaining += k.Progress.Remaining + k.Events.Remaining
	}
	return flushed, remaining
}

// FlushAll forwards every locally cached snapshot and queued event to the
// remote service. Snapshots go first, then events, each game in turn. A
// failure in one queue leaves the others unaffected.
func (c *Coordinator) FlushAll(ctx context.Context) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.auth.State() {
	case StateUnknown:
		return Report{}, game.ErrAuthUnknown
	case StateSignedOut:
		return Report{}, ErrSignedOut
	}
	return c.flushLocked(ctx)
}

func (c *Coordinator) flushLocked(ctx context.Context) (Report, error) {
	report := Report{Kinds: make([]KindReport, len(game.Kinds))}
	var errs []error

	for i, kind := range game.Kinds {
		report.Kinds[i].Kind = kind
		r, err := Flush[progress.Snapshot](ctx, progressQueue{local: c.local, kind: kind}, c.remote.SaveProgress)
		report.Kinds[i].Progress = r
		c.observe(kind, "progress", r, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("flush %s progress: %w", kind, err))
		}
	}
	for i, kind := range game.Kinds {
		r, err := Flush[progress.Event](ctx, eventQueue{local: c.local, kind: kind}, c.remote.RecordResult)
		report.Kinds[i].Events = r
		c.observe(kind, "events", r, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("flush %s events: %w", kind, err))
		}
	}

	flushed, remaining := report.Totals()
	c.logger.Info("flushed local state", "flushed", flushed, "remaining", remaining)
	return report, errors.Join(errs...)
}

func (c *Coordinator) observe(kind game.Kind, queue string, r FlushReport, err error) {
	flushedTotal.WithLabelValues(string(kind), queue).Add(float64(r.Flushed))
	requeuedTotal.WithLabelValues(string(kind), queue).Add(float64(r.Remaining))
	if r.Remaining > 0 {
		c.logger.Warn("flush stopped early", "kind", kind, "queue", queue,
			"flushed", r.Flushed, "remaining", r.Remaining)
	}
	if err != nil {
		c.logger.Error("flush storage failure", "kind", kind, "queue", queue, "error", err)
	}
}

// SaveProgress persists a snapshot. Signed-out players write locally.
// Signed-in players write remotely on a best-effort basis; a failed remote
// write is kept locally for the next flush instead.
func (c *Coordinator) SaveProgress(ctx context.Context, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return game.InputInvalid(snap.Game(), "invalid snapshot: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.auth.State() {
	case StateUnknown:
		return game.ErrAuthUnknown
	case StateSignedOut:
		return c.local.SaveProgress(ctx, snap)
	}

	if err := c.remote.SaveProgress(ctx, snap); err != nil {
		c.logger.Warn("remote progress write failed, keeping locally",
			"kind", snap.Game(), "date", snap.Day(), "error", err)
		return c.local.SaveProgress(ctx, snap)
	}
	return nil
}

// LoadProgress returns the saved snapshot for kind and date. Signed-in
// players read the remote copy, falling back to anything kept locally.
func (c *Coordinator) LoadProgress(ctx context.Context, kind game.Kind, date string) (progress.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.auth.State() {
	case StateUnknown:
		return nil, false, game.ErrAuthUnknown
	case StateSignedOut:
		return c.local.Progress(ctx, kind, date)
	}

	snap, ok, err := c.remote.LoadProgress(ctx, kind, date)
	if err == nil && ok {
		return snap, true, nil
	}
	localSnap, localOK, lerr := c.local.Progress(ctx, kind, date)
	if lerr != nil {
		return nil, false, lerr
	}
	if localOK {
		return localSnap, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Outcome reports how a terminal result was recorded.
type Outcome struct {
	// Queued is set when the result went to the local queue rather than
	// the remote service.
	Queued bool `json:"queued"`
	// Summary holds refreshed stats when they could be computed.
	Summary *stats.Summary `json:"summary,omitempty"`
}

// RecordResult records a terminal result. Signed-out players queue it
// locally and tally local counters. Signed-in players post it at once;
// if the post fails the result is queued for the next flush.
func (c *Coordinator) RecordResult(ctx context.Context, r game.Result) (Outcome, error) {
	if err := progress.ValidateResult(r); err != nil {
		return Outcome{}, game.InputInvalid(r.Kind, "invalid result: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.auth.State() == StateUnknown {
		return Outcome{}, game.ErrAuthUnknown
	}

	e := progress.NewEvent(c.newID(), r, c.now())

	if c.auth.State() == StateSignedOut {
		if err := c.local.Enqueue(ctx, e); err != nil {
			return Outcome{}, err
		}
		if err := c.local.AddCounters(ctx, r); err != nil {
			return Outcome{Queued: true}, err
		}
		resultsTotal.WithLabelValues(string(r.Kind), string(r.Outcome), "local").Inc()
		counters, err := c.local.Counters(ctx, r.Kind)
		if err != nil {
			return Outcome{Queued: true}, err
		}
		s := stats.Summarize(r.Kind, counters)
		return Outcome{Queued: true, Summary: &s}, nil
	}

	if err := c.remote.RecordResult(ctx, e); err != nil {
		c.logger.Warn("remote result failed, queueing", "kind", r.Kind, "outcome", r.Outcome,
			"event", e.ID, "error", err)
		if qerr := c.local.Enqueue(ctx, e); qerr != nil {
			return Outcome{}, errors.Join(err, qerr)
		}
		resultsTotal.WithLabelValues(string(r.Kind), string(r.Outcome), "queued").Inc()
		return Outcome{Queued: true}, nil
	}
	resultsTotal.WithLabelValues(string(r.Kind), string(r.Outcome), "remote").Inc()

	s, err := c.remote.Stats(ctx, r.Kind)
	if err != nil {
		c.logger.Warn("stats refresh failed", "kind", r.Kind, "error", err)
		return Outcome{}, nil
	}
	return Outcome{Summary: &s}, nil
}

// Stats returns the summary for kind from wherever the player's counters
// live.
func (c *Coordinator) Stats(ctx context.Context, kind game.Kind) (stats.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.auth.State() {
	case StateUnknown:
		return stats.Summary{}, game.ErrAuthUnknown
	case StateSignedOut:
		counters, err := c.local.Counters(ctx, kind)
		if err != nil {
			return stats.Summary{}, err
		}
		return stats.Summarize(kind, counters), nil
	}
	return c.remote.Stats(ctx, kind)
}

// Pending counts what is waiting locally for each game.
type Pending struct {
	Kind     game.Kind `json:"kind"`
	Progress int       `json:"progress"`
	Events   int       `json:"events"`
}

// Pending reports the locally queued snapshots and events per game.
func (c *Coordinator) Pending(ctx context.Context) ([]Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Pending, 0, len(game.Kinds))
	for _, kind := range game.Kinds {
		snaps, err := c.local.AllProgress(ctx, kind)
		if err != nil {
			return nil, err
		}
		events, err := c.local.Events(ctx, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, Pending{Kind: kind, Progress: len(snaps), Events: len(events)})
	}
	return out, nil
}

func (p Pending) String() string {
	return string(p.Kind) + ": " + strconv.Itoa(p.Progress) + " progress, " + strconv.Itoa(p.Events) + " events"
}
