package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tablyhq/tably/internal/domain"
)

// retentionTTL bounds how long a day's ledger is kept; refreshed on every
// entry write.
const retentionTTL = 30 * 24 * time.Hour

// VisitorStore keeps an append-only list of session events per calendar day
// under analytics:visitors:{YYYY-MM-DD}. New events are prepended, so the
// list reads newest first.
type VisitorStore struct {
	rdb *redis.Client
}

func NewVisitorStore(rdb *redis.Client) *VisitorStore {
	return &VisitorStore{rdb: rdb}
}

func (s *VisitorStore) Push(ctx context.Context, date string, ev *domain.VisitorEvent) error {
	const op = "repository.redis.VisitorStore.Push"

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := KeyVisitorDay(date)

	if err := s.rdb.LPush(ctx, key, b).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Expire(ctx, key, retentionTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *VisitorStore) List(ctx context.Context, date string) ([]domain.VisitorEvent, error) {
	const op = "repository.redis.VisitorStore.List"

	raw, err := s.rdb.LRange(ctx, KeyVisitorDay(date), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events := make([]domain.VisitorEvent, 0, len(raw))
	for _, r := range raw {
		var ev domain.VisitorEvent
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, ev)
	}

	return events, nil
}

// Close finds the newest open event for (tableID, visitorID) in the day's
// list and rewrites it with the exit time and rounded duration. The rewrite
// removes the verbatim stored payload and prepends the closed copy, so the
// list length is unchanged. Reports whether a matching open event existed.
func (s *VisitorStore) Close(
	ctx context.Context,
	date string,
	tableID int64,
	visitorID string,
	exitAt time.Time,
) (bool, error) {
	const op = "repository.redis.VisitorStore.Close"

	key := KeyVisitorDay(date)

	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	for _, r := range raw {
		var ev domain.VisitorEvent
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		if ev.TableID != tableID || ev.VisitorID != visitorID || !ev.Open() {
			continue
		}

		exit := exitAt.UTC()
		duration := int(math.Round(exit.Sub(ev.EntryTime).Minutes()))
		ev.ExitTime = &exit
		ev.Duration = &duration

		b, err := json.Marshal(&ev)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.rdb.LRem(ctx, key, 1, r).Err(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.rdb.LPush(ctx, key, b).Err(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		return true, nil
	}

	return false, nil
}
