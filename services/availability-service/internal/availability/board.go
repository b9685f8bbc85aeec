package availability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrStale is returned by Board.Refresh when a newer refresh committed first.
var ErrStale = errors.New("availability refresh superseded")

// Fetcher loads the calendar events in [start, end).
type Fetcher interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error)
}

// Input is everything a week computation depends on besides the events.
type Input struct {
	PeriodStart       time.Time
	TotalMinutes      int
	LastAcceptableEnd string
}

var tracer = otel.Tracer("github.com/tenantbook/reservations/services/availability-service/internal/availability")

// Load fetches the events covering in.PeriodStart's week and generates its
// availability. Fetch errors abort the whole computation.
func Load(ctx context.Context, f Fetcher, in Input, opts Options, now time.Time) ([]DayAvailability, error) {
	ctx, span := tracer.Start(ctx, "availability.load", trace.WithAttributes(
		attribute.Int("availability.total_minutes", in.TotalMinutes),
		attribute.String("availability.last_acceptable_end", in.LastAcceptableEnd),
	))
	defer span.End()

	start, end := Period(in.PeriodStart, opts)
	events, err := f.FetchEvents(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch events")
		return nil, err
	}
	span.SetAttributes(attribute.Int("availability.events", len(events)))

	days, err := GenerateWeek(events, in.PeriodStart, in.TotalMinutes, in.LastAcceptableEnd, now, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate week")
		return nil, err
	}
	return days, nil
}

// Snapshot is the state committed by the latest successful or failed refresh.
// On failure Days keeps the previously committed days.
type Snapshot struct {
	Generation uint64
	Input      Input
	Days       []DayAvailability
	Err        error
	UpdatedAt  time.Time
}

// Board recomputes a week view on demand. Each refresh is stamped with an
// increasing generation and a result is only committed when no later
// generation has committed already, so overlapping refreshes cannot roll the
// view back.
type Board struct {
	fetcher Fetcher
	opts    Options
	now     func() time.Time

	gen  atomic.Uint64
	mu   sync.RWMutex
	snap Snapshot
}

// NewBoard returns an empty Board that fetches events through f.
func NewBoard(f Fetcher, opts Options) *Board {
	return &Board{fetcher: f, opts: opts, now: time.Now}
}

// Refresh runs a full fetch and recompute for in. It returns the snapshot it
// committed, or ErrStale together with the current snapshot when a newer
// refresh won.
func (b *Board) Refresh(ctx context.Context, in Input) (Snapshot, error) {
	gen := b.gen.Add(1)
	now := b.now()
	days, err := Load(ctx, b.fetcher, in, b.opts, now)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen <= b.snap.Generation {
		return b.snap, ErrStale
	}

	next := Snapshot{Generation: gen, Input: in, Days: days, Err: err, UpdatedAt: now}
	if err != nil {
		next.Days = b.snap.Days
	}
	b.snap = next
	return next, err
}

// Snapshot returns the latest committed state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
