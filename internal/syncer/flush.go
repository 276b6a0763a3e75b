package syncer

import (
	"context"
	"fmt"
)

// FlushReport counts what one flush delivered and what it left queued.
// A non-zero Remaining is a partial failure, not an error.
type FlushReport struct {
	Flushed   int `json:"flushed"`
	Remaining int `json:"remaining"`
}

// Queue is a durable, ordered collection of items awaiting delivery.
type Queue[T any] interface {
	// Drain removes and returns every queued item, oldest first.
	Drain(ctx context.Context) ([]T, error)
	// Restore puts undelivered items back ahead of anything queued since
	// the drain.
	Restore(ctx context.Context, items []T) error
}

// Sender delivers one item. Any error means the item was not delivered.
type Sender[T any] func(ctx context.Context, item T) error

// Flush drains q and sends items in order. On the first failed send that
// item and everything after it are restored to q and the flush stops.
// The returned error reports local storage failures only.
//
// Cancelling ctx stops sends but never the local drain or restore, so a
// cancelled flush keeps its undelivered tail.
func Flush[T any](ctx context.Context, q Queue[T], send Sender[T]) (FlushReport, error) {
	local := context.WithoutCancel(ctx)
	items, err := q.Drain(local)
	if err != nil {
		return FlushReport{}, fmt.Errorf("drain queue: %w", err)
	}
	if len(items) == 0 {
		return FlushReport{}, nil
	}

	for i, item := range items {
		if err := send(ctx, item); err != nil {
			remaining := items[i:]
			if rerr := q.Restore(local, remaining); rerr != nil {
				return FlushReport{Flushed: i, Remaining: len(remaining)}, fmt.Errorf("restore queue: %w", rerr)
			}
			return FlushReport{Flushed: i, Remaining: len(remaining)}, nil
		}
	}
	return FlushReport{Flushed: len(items)}, nil
}

// SliceQueue is an in-memory Queue.
type SliceQueue[T any] struct {
	Items []T
}

func (q *SliceQueue[T]) Drain(context.Context) ([]T, error) {
	items := q.Items
	q.Items = nil
	return items, nil
}

func (q *SliceQueue[T]) Restore(_ context.Context, items []T) error {
	q.Items = append(append([]T(nil), items...), q.Items...)
	return nil
}
