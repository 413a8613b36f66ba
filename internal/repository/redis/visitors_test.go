package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablyhq/tably/internal/domain"
)

func TestVisitorStore_Push_SetsRetention(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewVisitorStore(client)
	ctx := context.Background()

	entry := time.Date(2025, 8, 31, 12, 5, 0, 0, time.UTC)
	ev := &domain.VisitorEvent{
		VisitorID: "v-1",
		TableID:   3,
		EntryTime: entry,
		Guests:    2,
	}
	require.NoError(t, store.Push(ctx, "2025-08-31", ev))

	assert.Equal(t, retentionTTL, mr.TTL(KeyVisitorDay("2025-08-31")))

	events, err := store.List(ctx, "2025-08-31")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Open())
	assert.True(t, events[0].EntryTime.Equal(entry))
}

func TestVisitorStore_Close_RewritesInPlace(t *testing.T) {
	_, client := newTestClient(t)
	store := NewVisitorStore(client)
	ctx := context.Background()

	const date = "2025-08-31"
	entry := time.Date(2025, 8, 31, 12, 5, 0, 0, time.UTC)

	require.NoError(t, store.Push(ctx, date, &domain.VisitorEvent{
		VisitorID: "v-1", TableID: 3, EntryTime: entry, Guests: 2,
	}))
	require.NoError(t, store.Push(ctx, date, &domain.VisitorEvent{
		VisitorID: "v-2", TableID: 5, EntryTime: entry, Guests: 4,
	}))

	closed, err := store.Close(ctx, date, 3, "v-1", entry.Add(45*time.Minute))
	require.NoError(t, err)
	assert.True(t, closed)

	events, err := store.List(ctx, date)
	require.NoError(t, err)
	require.Len(t, events, 2, "close must not change the day's list length")

	var found *domain.VisitorEvent
	for i := range events {
		if events[i].VisitorID == "v-1" {
			found = &events[i]
		} else {
			assert.True(t, events[i].Open(), "unrelated event must stay open")
		}
	}
	require.NotNil(t, found)
	require.NotNil(t, found.ExitTime)
	require.NotNil(t, found.Duration)
	assert.Equal(t, 45, *found.Duration)
}

func TestVisitorStore_Close_RoundsDuration(t *testing.T) {
	_, client := newTestClient(t)
	store := NewVisitorStore(client)
	ctx := context.Background()

	const date = "2025-08-31"
	entry := time.Date(2025, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Push(ctx, date, &domain.VisitorEvent{
		VisitorID: "v-1", TableID: 1, EntryTime: entry, Guests: 1,
	}))

	closed, err := store.Close(ctx, date, 1, "v-1", entry.Add(10*time.Minute+40*time.Second))
	require.NoError(t, err)
	require.True(t, closed)

	events, err := store.List(ctx, date)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 11, *events[0].Duration)
}

func TestVisitorStore_Close_NoMatchIsNoop(t *testing.T) {
	_, client := newTestClient(t)
	store := NewVisitorStore(client)
	ctx := context.Background()

	const date = "2025-08-31"
	entry := time.Date(2025, 8, 31, 12, 5, 0, 0, time.UTC)

	require.NoError(t, store.Push(ctx, date, &domain.VisitorEvent{
		VisitorID: "v-1", TableID: 3, EntryTime: entry, Guests: 2,
	}))

	// unknown visitor id
	closed, err := store.Close(ctx, date, 3, "v-other", entry.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, closed)

	// already closed event does not match again
	closed, err = store.Close(ctx, date, 3, "v-1", entry.Add(30*time.Minute))
	require.NoError(t, err)
	require.True(t, closed)

	closed, err = store.Close(ctx, date, 3, "v-1", entry.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, closed)

	events, err := store.List(ctx, date)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 30, *events[0].Duration)
}
