package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlush_DeliversInOrder(t *testing.T) {
	q := &SliceQueue[int]{Items: []int{1, 2, 3}}
	var sent []int

	report, err := Flush[int](context.Background(), q, func(_ context.Context, n int) error {
		sent = append(sent, n)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, FlushReport{Flushed: 3}, report)
	assert.Equal(t, []int{1, 2, 3}, sent)
	assert.Empty(t, q.Items)
}

func TestFlush_StopsAtFirstFailure(t *testing.T) {
	for k := 0; k < 4; k++ {
		q := &SliceQueue[int]{Items: []int{10, 11, 12, 13}}
		calls := 0

		report, err := Flush[int](context.Background(), q, func(_ context.Context, n int) error {
			calls++
			if n == 10+k {
				return errors.New("down")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, FlushReport{Flushed: k, Remaining: 4 - k}, report)
		assert.Equal(t, k+1, calls, "no sends after the failing item")

		var want []int
		for n := 10 + k; n <= 13; n++ {
			want = append(want, n)
		}
		assert.Equal(t, want, q.Items, "failing item and its successors stay queued in order")
	}
}

func TestFlush_EmptyQueue(t *testing.T) {
	q := &SliceQueue[string]{}
	report, err := Flush[string](context.Background(), q, func(context.Context, string) error {
		t.Fatal("send called on empty queue")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, FlushReport{}, report)
}

func TestSliceQueue_RestorePrecedesNewItems(t *testing.T) {
	ctx := context.Background()
	q := &SliceQueue[string]{Items: []string{"a", "b"}}

	drained, err := q.Drain(ctx)
	require.NoError(t, err)
	q.Items = append(q.Items, "c")

	require.NoError(t, q.Restore(ctx, drained))
	assert.Equal(t, []string{"a", "b", "c"}, q.Items)
}
