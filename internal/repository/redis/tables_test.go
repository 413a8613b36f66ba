package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablyhq/tably/internal/domain"
	"github.com/tablyhq/tably/internal/repository"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestTableStore_SaveGet(t *testing.T) {
	_, client := newTestClient(t)
	store := NewTableStore(client)
	ctx := context.Background()

	in := &domain.Table{
		ID:       3,
		Name:     "Table 3",
		Capacity: 4,
		Status:   domain.TableReserved,
		Reservation: &domain.Reservation{
			CustomerName: "Dana",
			Guests:       4,
			Time:         "19:00",
		},
	}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTableStore_Get_NotFound(t *testing.T) {
	_, client := newTestClient(t)
	store := NewTableStore(client)

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTableStore_Seed_Idempotent(t *testing.T) {
	_, client := newTestClient(t)
	store := NewTableStore(client)
	ctx := context.Background()

	defaults := domain.DefaultTables()

	seeded, err := store.Seed(ctx, defaults, false)
	require.NoError(t, err)
	assert.True(t, seeded)

	// mutate one table, then reseed without force
	occupied := defaults[0]
	occupied.Status = domain.TableOccupied
	occupied.Visitor = &domain.Visitor{VisitorID: "v-1", Guests: 2}
	require.NoError(t, store.Save(ctx, &occupied))

	seeded, err = store.Seed(ctx, defaults, false)
	require.NoError(t, err)
	assert.False(t, seeded)

	got, err := store.Get(ctx, occupied.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TableOccupied, got.Status, "reseed must not reset existing records")

	// forced reseed rewrites the defaults
	seeded, err = store.Seed(ctx, defaults, true)
	require.NoError(t, err)
	assert.True(t, seeded)

	got, err = store.Get(ctx, occupied.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TableAvailable, got.Status)
	assert.Nil(t, got.Visitor)
}

func TestTableStore_All(t *testing.T) {
	_, client := newTestClient(t)
	store := NewTableStore(client)
	ctx := context.Background()

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = store.Seed(ctx, domain.DefaultTables(), false)
	require.NoError(t, err)

	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestTableStore_All_MalformedRecord(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewTableStore(client)

	require.NoError(t, mr.Set(KeyTable(1), "not json"))

	_, err := store.All(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrNotFound))
}
