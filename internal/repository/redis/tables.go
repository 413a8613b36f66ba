package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tablyhq/tably/internal/domain"
	"github.com/tablyhq/tably/internal/repository"
)

// TableStore keeps one record per table under tables:{id}. Records are
// always replaced whole; there are no partial-field updates.
type TableStore struct {
	rdb *redis.Client
}

func NewTableStore(rdb *redis.Client) *TableStore {
	return &TableStore{rdb: rdb}
}

func (s *TableStore) Get(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "repository.redis.TableStore.Get"

	data, err := s.rdb.Get(ctx, KeyTable(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var t domain.Table
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

func (s *TableStore) All(ctx context.Context) ([]domain.Table, error) {
	const op = "repository.redis.TableStore.All"

	keys, err := s.scanKeys(ctx, tablesPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tables := make([]domain.Table, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// key expired between SCAN and MGET
			continue
		}

		var t domain.Table
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		tables = append(tables, t)
	}

	return tables, nil
}

func (s *TableStore) Save(ctx context.Context, t *domain.Table) error {
	const op = "repository.redis.TableStore.Save"

	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Set(ctx, KeyTable(t.ID), b, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Seed writes the given layout in one pipeline. When the registry already
// holds any table keys the call is a no-op unless force is set. Reports
// whether anything was written.
func (s *TableStore) Seed(ctx context.Context, tables []domain.Table, force bool) (bool, error) {
	const op = "repository.redis.TableStore.Seed"

	keys, err := s.scanKeys(ctx, tablesPrefix+"*")
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if len(keys) > 0 && !force {
		return false, nil
	}

	pipe := s.rdb.Pipeline()
	for i := range tables {
		b, err := json.Marshal(&tables[i])
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		pipe.Set(ctx, KeyTable(tables[i].ID), b, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (s *TableStore) scanKeys(ctx context.Context, match string) ([]string, error) {
	var keys []string

	iter := s.rdb.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}
