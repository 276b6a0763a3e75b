package syncer

import (
	"context"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/local"
	"github.com/roach88/dailies/internal/progress"
)

// eventQueue is the pending-event queue of one game.
type eventQueue struct {
	local *local.Store
	kind  game.Kind
}

func (q eventQueue) Drain(ctx context.Context) ([]progress.Event, error) {
	events, err := q.local.Events(ctx, q.kind)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	if err := q.local.ReplaceEvents(ctx, q.kind, nil); err != nil {
		return nil, err
	}
	return events, nil
}

func (q eventQueue) Restore(ctx context.Context, items []progress.Event) error {
	current, err := q.local.Events(ctx, q.kind)
	if err != nil {
		return err
	}
	return q.local.ReplaceEvents(ctx, q.kind, append(append([]progress.Event(nil), items...), current...))
}

// progressQueue presents the cached snapshots of one game, oldest date
// first, as a queue.
type progressQueue struct {
	local *local.Store
	kind  game.Kind
}

func (q progressQueue) Drain(ctx context.Context) ([]progress.Snapshot, error) {
	all, err := q.local.AllProgress(ctx, q.kind)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	if err := q.local.ClearProgress(ctx, q.kind, ""); err != nil {
		return nil, err
	}
	return all, nil
}

// Restore writes undelivered snapshots back unless a newer one for the same
// date was saved since the drain.
func (q progressQueue) Restore(ctx context.Context, items []progress.Snapshot) error {
	for _, snap := range items {
		_, exists, err := q.local.Progress(ctx, q.kind, snap.Day())
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := q.local.SaveProgress(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}
