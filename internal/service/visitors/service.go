package visitors

import (
	"context"
	"fmt"
	"time"

	"github.com/tablyhq/tably/internal/domain"
	redisrepo "github.com/tablyhq/tably/internal/repository/redis"
)

type Config struct {
	// Now is the source-of-truth clock for entry and exit instants.
	Now func() time.Time
}

// Service is the per-day session ledger. Entries and exits are correlated by
// the (tableID, visitorID) pair; the visitor id is generated fresh per
// seating, so repeated occupancies of one table stay distinct within a day.
type Service struct {
	store *redisrepo.VisitorStore
	now   func() time.Time
}

func New(store *redisrepo.VisitorStore, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store: store,
		now:   cfg.Now,
	}
}

// RecordEntry appends an open session event to the current day's ledger and
// refreshes the day's retention expiry.
func (s *Service) RecordEntry(ctx context.Context, tableID int64, visitorID string, guests int) error {
	const op = "service.visitors.RecordEntry"

	if guests < 1 {
		guests = 1
	}

	now := s.now().UTC()

	ev := domain.VisitorEvent{
		VisitorID: visitorID,
		TableID:   tableID,
		EntryTime: now,
		Guests:    guests,
	}

	if err := s.store.Push(ctx, domain.DayKey(now), &ev); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecordExit closes the newest open session for (tableID, visitorID) in the
// current day's ledger. With no matching open entry (the entry fell on a
// previous day, or was never recorded) the call is a silent no-op.
func (s *Service) RecordExit(ctx context.Context, tableID int64, visitorID string) error {
	const op = "service.visitors.RecordExit"

	now := s.now().UTC()

	if _, err := s.store.Close(ctx, domain.DayKey(now), tableID, visitorID, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Day returns all session events recorded under the given calendar day,
// newest first.
func (s *Service) Day(ctx context.Context, date string) ([]domain.VisitorEvent, error) {
	const op = "service.visitors.Day"

	events, err := s.store.List(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}
