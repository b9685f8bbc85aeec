// Package reservations answers availability queries for a store and accepts
// reservation requests for slots that are still open.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"github.com/tenantbook/reservations/services/availability-service/internal/menu"
	"github.com/tenantbook/reservations/services/availability-service/internal/tenant"
)

var (
	ErrSlotUnavailable = errors.New("requested time is not available")
	ErrInvalidRequest  = errors.New("invalid reservation request")
)

// FetcherFunc picks the availability source for a store.
type FetcherFunc func(cfg tenant.StoreConfig) (availability.Fetcher, error)

type Config struct {
	DefaultLocation *time.Location
	BusinessDayTag  string
}

type Service struct {
	stores    tenant.Store
	fetchers  FetcherFunc
	publisher Publisher
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(stores tenant.Store, fetchers FetcherFunc, publisher Publisher, logger *slog.Logger, cfg Config) *Service {
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	return &Service{
		stores:    stores,
		fetchers:  fetchers,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Week is the availability view for one store and selection.
type Week struct {
	StoreID      string                         `json:"store_id"`
	TotalMinutes int                            `json:"total_minutes"`
	Unmatched    []string                       `json:"unmatched,omitempty"`
	Days         []availability.DayAvailability `json:"days"`
}

// Store returns the configuration of storeID.
func (s *Service) Store(ctx context.Context, storeID string) (tenant.StoreConfig, error) {
	return s.stores.Get(ctx, storeID)
}

// Duration computes the booking length for sel at storeID.
func (s *Service) Duration(ctx context.Context, storeID string, sel menu.Selection) (int, []string, error) {
	cfg, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return 0, nil, err
	}
	return s.duration(cfg, sel), menu.UnmatchedNames(sel.Menus, sel.Options, cfg.Menu), nil
}

// Week computes the seven days starting at periodStart for sel.
func (s *Service) Week(ctx context.Context, storeID string, sel menu.Selection, periodStart time.Time) (Week, error) {
	cfg, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return Week{}, err
	}
	return s.WeekFor(ctx, cfg, sel, periodStart)
}

// Options returns the slot generation options that apply to cfg.
func (s *Service) Options(cfg tenant.StoreConfig) (availability.Options, error) {
	loc, err := cfg.Location(s.cfg.DefaultLocation)
	if err != nil {
		return availability.Options{}, err
	}
	return availability.Options{Location: loc, BusinessDayTag: s.cfg.BusinessDayTag}, nil
}

// WeekFor is Week for an already loaded store configuration.
func (s *Service) WeekFor(ctx context.Context, cfg tenant.StoreConfig, sel menu.Selection, periodStart time.Time) (Week, error) {
	opts, err := s.Options(cfg)
	if err != nil {
		return Week{}, err
	}
	if _, err := availability.ParseClock(cfg.Rules.LastAcceptableEnd); err != nil {
		return Week{}, fmt.Errorf("%w: store %s: %v", tenant.ErrInvalidConfig, cfg.ID, err)
	}
	fetcher, err := s.fetchers(cfg)
	if err != nil {
		return Week{}, err
	}

	total := s.duration(cfg, sel)
	days, err := availability.Load(ctx, fetcher, availability.Input{
		PeriodStart:       periodStart,
		TotalMinutes:      total,
		LastAcceptableEnd: cfg.Rules.LastAcceptableEnd,
	}, opts, s.now())
	if err != nil {
		return Week{}, err
	}
	return Week{
		StoreID:      cfg.ID,
		TotalMinutes: total,
		Unmatched:    menu.UnmatchedNames(sel.Menus, sel.Options, cfg.Menu),
		Days:         days,
	}, nil
}

func (s *Service) duration(cfg tenant.StoreConfig, sel menu.Selection) int {
	if unknown := menu.UnmatchedNames(sel.Menus, sel.Options, cfg.Menu); len(unknown) > 0 {
		s.logger.Warn("unknown menu selection ignored", "store_id", cfg.ID, "names", unknown)
	}
	return sel.TotalMinutes(cfg.Menu)
}

// Request validates req, re-checks that its start time is still listed as
// available and publishes the accepted reservation.
func (s *Service) Request(ctx context.Context, storeID string, req Request) (Reservation, error) {
	if err := req.Validate(); err != nil {
		return Reservation{}, err
	}
	cfg, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return Reservation{}, err
	}
	opts, err := s.Options(cfg)
	if err != nil {
		return Reservation{}, err
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return Reservation{}, fmt.Errorf("%w: start_time", ErrInvalidRequest)
	}
	start = start.In(opts.Location)

	sel := req.Selection()
	wk, err := s.WeekFor(ctx, cfg, sel, start)
	if err != nil {
		return Reservation{}, err
	}
	if !start.Truncate(time.Minute).Equal(start) || !slices.Contains(wk.Days[0].AvailableTimes, start.Format("15:04")) {
		return Reservation{}, ErrSlotUnavailable
	}

	res := Reservation{
		ID:           uuid.NewString(),
		StoreID:      cfg.ID,
		StoreName:    cfg.Name,
		Customer:     req.Customer(),
		Selection:    sel,
		StartTime:    start,
		EndTime:      start.Add(time.Duration(wk.TotalMinutes) * time.Minute),
		TotalMinutes: wk.TotalMinutes,
		RequestedAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, res); err != nil {
		return Reservation{}, fmt.Errorf("publish reservation: %w", err)
	}
	s.logger.Info("reservation requested",
		"store_id", res.StoreID,
		"reservation_id", res.ID,
		"start_time", res.StartTime.Format(time.RFC3339),
		"total_minutes", res.TotalMinutes,
	)
	return res, nil
}

// ParsePeriodStart accepts an RFC 3339 timestamp or a YYYY-MM-DD date read in
// loc. An empty value means now.
func ParsePeriodStart(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start %q", availability.ErrInvalidInput, raw)
	}
	return t, nil
}

// Now is the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}
