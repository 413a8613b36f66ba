package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tablyhq/tably/internal/domain"
)

const (
	hoursPerDay  = 24
	maxWindow    = 30
	topPeakHours = 5
)

// LedgerReader is the slice of the visitor session ledger the aggregator
// consumes.
type LedgerReader interface {
	Day(ctx context.Context, date string) ([]domain.VisitorEvent, error)
}

type Config struct {
	Now func() time.Time
	// Fanout caps concurrent per-day reads when building multi-day views.
	Fanout int
}

// Service derives occupancy statistics from the session ledger. It holds no
// state of its own; every snapshot is computed fresh from the day's events.
type Service struct {
	ledger LedgerReader
	now    func() time.Time
	fanout int
}

func New(ledger LedgerReader, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Fanout <= 0 {
		cfg.Fanout = 8
	}

	return &Service{
		ledger: ledger,
		now:    cfg.Now,
		fanout: cfg.Fanout,
	}
}

// Daily computes the snapshot for an explicit date. The date is validated
// before any store access; a malformed or impossible date (2024-02-30) is
// rejected with ErrInvalidDate.
func (s *Service) Daily(ctx context.Context, date string) (*domain.DailyAnalytics, error) {
	const op = "service.analytics.Daily"

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidDate)
	}

	snap, err := s.snapshot(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return snap, nil
}

func (s *Service) Today(ctx context.Context) (*domain.DailyAnalytics, error) {
	const op = "service.analytics.Today"

	snap, err := s.snapshot(ctx, domain.DayKey(s.now()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return snap, nil
}

// Overview returns today plus the trailing week and month, oldest first.
// Week and month are views over the same 30-day series.
func (s *Service) Overview(ctx context.Context) (*domain.AnalyticsOverview, error) {
	const op = "service.analytics.Overview"

	month, err := s.trailing(ctx, maxWindow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.AnalyticsOverview{
		Today: month[len(month)-1],
		Week:  month[len(month)-7:],
		Month: month,
	}, nil
}

// PeakHours ranks the top hours by visitor count over the trailing window.
// Ties keep ascending hour order.
func (s *Service) PeakHours(ctx context.Context, days int) (*domain.PeakHoursReport, error) {
	const op = "service.analytics.PeakHours"

	if days < 1 || days > maxWindow {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidDaysRange)
	}

	snaps, err := s.trailing(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hours := make([]domain.HourlyStat, hoursPerDay)
	for h := range hours {
		hours[h].Hour = h
	}

	report := domain.PeakHoursReport{
		Period: fmt.Sprintf("%d days", days),
	}

	for _, snap := range snaps {
		for _, hs := range snap.PeakHours {
			hours[hs.Hour].Visitors += hs.Visitors
			hours[hs.Hour].Sessions += hs.Sessions
		}
		report.TotalVisitors += snap.TotalVisitors
		report.TotalSessions += snap.TotalSessions
	}

	sort.SliceStable(hours, func(i, j int) bool {
		return hours[i].Visitors > hours[j].Visitors
	})

	report.PeakHours = hours[:topPeakHours]

	return &report, nil
}

// trailing computes the snapshots for the last n days ending today, oldest
// first. Per-day reads are independent, so they fan out concurrently.
func (s *Service) trailing(ctx context.Context, n int) ([]domain.DailyAnalytics, error) {
	snaps := make([]domain.DailyAnalytics, n)
	now := s.now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)

	for i := 0; i < n; i++ {
		i := i
		date := domain.DayKey(now.AddDate(0, 0, -(n - 1 - i)))
		g.Go(func() error {
			snap, err := s.snapshot(ctx, date)
			if err != nil {
				return err
			}
			snaps[i] = *snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snaps, nil
}

func (s *Service) snapshot(ctx context.Context, date string) (*domain.DailyAnalytics, error) {
	events, err := s.ledger.Day(ctx, date)
	if err != nil {
		return nil, err
	}

	snap := domain.DailyAnalytics{
		Date:      date,
		PeakHours: make([]domain.HourlyStat, hoursPerDay),
	}
	for h := range snap.PeakHours {
		snap.PeakHours[h].Hour = h
	}

	var completed, completedMinutes int
	for i := range events {
		ev := &events[i]

		snap.TotalVisitors += ev.Guests
		snap.TotalSessions++

		hour := ev.EntryTime.Hour()
		snap.PeakHours[hour].Visitors += ev.Guests
		snap.PeakHours[hour].Sessions++

		if ev.Open() {
			snap.ActiveSessions++
			continue
		}

		completed++
		if ev.Duration != nil {
			completedMinutes += *ev.Duration
		}
	}

	if completed > 0 {
		snap.AverageDuration = int(math.Round(float64(completedMinutes) / float64(completed)))
	}

	return &snap, nil
}
