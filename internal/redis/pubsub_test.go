package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesPubSub_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ps := NewTablesPubSub(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan int64, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(_ context.Context, tableID int64) {
			select {
			case received <- tableID:
			default:
			}
		})
	}()

	// the subscriber races the first publish, so publish until it is heard;
	// the garbage payload must be skipped without reaching the handler
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, client.Publish(ctx, ChannelTablesChanged(), "not json").Err())
		require.NoError(t, ps.PublishTableChanged(ctx, 3, "OCCUPIED"))

		select {
		case id := <-received:
			assert.Equal(t, int64(3), id)
			cancel()
			assert.ErrorIs(t, <-done, context.Canceled)
			return
		case <-deadline:
			t.Fatal("no table-changed notification received")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
