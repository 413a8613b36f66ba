package tables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/tablyhq/tably/internal/domain"
	"github.com/tablyhq/tably/internal/repository"
	redisrepo "github.com/tablyhq/tably/internal/repository/redis"
)

// VisitorLog receives best-effort session events derived from table
// transitions. Its failures never fail the transition itself; table state is
// the source of truth for occupancy, the ledger is an analytics side-channel.
type VisitorLog interface {
	RecordEntry(ctx context.Context, tableID int64, visitorID string, guests int) error
	RecordExit(ctx context.Context, tableID int64, visitorID string) error
}

// Notifier fans out table-changed events to realtime consumers.
type Notifier interface {
	PublishTableChanged(ctx context.Context, tableID int64, status string) error
}

type Config struct {
	// Defaults is the layout used to seed an empty registry and as the
	// degraded read fallback. Nil means the standard floor layout.
	Defaults []domain.Table
	// SeedForce rewrites the default records even when table keys exist.
	SeedForce bool
}

// Service owns the canonical state of every table.
type Service struct {
	store  *redisrepo.TableStore
	ledger VisitorLog
	pubsub Notifier
	logger *slog.Logger
	cfg    Config
}

func New(
	store *redisrepo.TableStore,
	ledger VisitorLog,
	pubsub Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Defaults == nil {
		cfg.Defaults = domain.DefaultTables()
	}

	return &Service{
		store:  store,
		ledger: ledger,
		pubsub: pubsub,
		logger: logger,
		cfg:    cfg,
	}
}

// Seed populates an empty registry with the default layout. Safe to run on
// every boot: existing records are left untouched unless SeedForce is set.
func (s *Service) Seed(ctx context.Context) error {
	const op = "service.tables.Seed"

	seeded, err := s.store.Seed(ctx, s.cfg.Defaults, s.cfg.SeedForce)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if seeded {
		s.logger.Info("seeded table registry", "tables", len(s.cfg.Defaults))
	} else {
		s.logger.Info("table registry already populated, skipping seed")
	}

	return nil
}

// List returns all tables sorted by id. It never fails the caller: on
// storage error it degrades to the configured default layout.
func (s *Service) List(ctx context.Context) []domain.Table {
	all, err := s.store.All(ctx)
	if err != nil {
		s.logger.Error("listing tables, falling back to defaults", "error", err)

		fallback := make([]domain.Table, len(s.cfg.Defaults))
		copy(fallback, s.cfg.Defaults)
		return fallback
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return all
}

// Get returns the table or nil when the id is unknown. Absence is a valid,
// non-error result.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "service.tables.Get"

	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Transition replaces the table's status and payload as a single write.
// Transitions are unrestricted: any status is reachable from any other.
func (s *Service) Transition(ctx context.Context, id int64, update domain.StatusUpdate) (*domain.Table, error) {
	const op = "service.tables.Transition"

	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTableNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	update.Apply(t)

	if err := s.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.pubsub != nil {
		if err := s.pubsub.PublishTableChanged(ctx, t.ID, string(t.Status)); err != nil {
			s.logger.Error("publishing table change", "table_id", t.ID, "error", err)
		}
	}

	return t, nil
}

// Reserve attaches a reservation and marks the table RESERVED.
func (s *Service) Reserve(ctx context.Context, id int64, r domain.Reservation) (*domain.Table, error) {
	return s.Transition(ctx, id, domain.AsReserved(r))
}

// Seat marks the table OCCUPIED with a freshly generated visitor id and
// records the entry in the session ledger. A non-positive guest count falls
// back to the table's capacity.
func (s *Service) Seat(ctx context.Context, id int64, guests int) (*domain.Table, error) {
	const op = "service.tables.Seat"

	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTableNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if guests <= 0 {
		guests = t.Capacity
	}

	visitor := domain.Visitor{
		VisitorID: uuid.New().String(),
		Guests:    guests,
	}

	updated, err := s.Transition(ctx, id, domain.AsOccupied(visitor))
	if err != nil {
		return nil, err
	}

	if err := s.ledger.RecordEntry(ctx, id, visitor.VisitorID, guests); err != nil {
		s.logger.Error("recording visitor entry", "table_id", id, "error", err)
	}

	return updated, nil
}

// Free marks the table AVAILABLE, clearing any payload, and records the exit
// of the visitor that occupied it, if any.
func (s *Service) Free(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "service.tables.Free"

	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTableNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	visitor := t.Visitor

	updated, err := s.Transition(ctx, id, domain.AsAvailable())
	if err != nil {
		return nil, err
	}

	if visitor != nil && visitor.VisitorID != "" {
		if err := s.ledger.RecordExit(ctx, id, visitor.VisitorID); err != nil {
			s.logger.Error("recording visitor exit", "table_id", id, "error", err)
		}
	}

	return updated, nil
}

// Stats counts tables by status. Built on List, so it degrades instead of
// failing when storage is unreachable.
func (s *Service) Stats(ctx context.Context) domain.TableStats {
	all := s.List(ctx)

	stats := domain.TableStats{Total: len(all)}
	for i := range all {
		switch all[i].Status {
		case domain.TableAvailable:
			stats.Available++
		case domain.TableOccupied:
			stats.Occupied++
		case domain.TableReserved:
			stats.Reserved++
		}
	}

	return stats
}
