package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenantbook/reservations/services/availability-service/internal/availability"
	"github.com/tenantbook/reservations/services/availability-service/internal/reservations"
)

type watchFrame struct {
	Generation uint64                         `json:"generation"`
	UpdatedAt  time.Time                      `json:"updated_at"`
	Days       []availability.DayAvailability `json:"days"`
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		start    string
		interval time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh availability periodically and print each new week",
		Long: `Refresh the availability view every --interval. A refresh is started on
every tick even while earlier ones are still running; a result that finishes
after a newer one has been printed is dropped.

Examples:
  slotctl watch --store salon-a -m カット --interval 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := g.logger(cmd.ErrOrStderr())
			svc, err := g.newService(logger)
			if err != nil {
				return err
			}
			cfg, err := svc.Store(ctx, g.storeID)
			if err != nil {
				return err
			}
			opts, err := svc.Options(cfg)
			if err != nil {
				return err
			}
			fetcher, err := g.fetcher(cfg)
			if err != nil {
				return err
			}
			var fixed time.Time
			if start != "" {
				if fixed, err = reservations.ParsePeriodStart(start, opts.Location, svc.Now()); err != nil {
					return err
				}
			}

			total, _, err := svc.Duration(ctx, g.storeID, g.selection())
			if err != nil {
				return err
			}
			input := func() availability.Input {
				periodStart := fixed
				if periodStart.IsZero() {
					periodStart = svc.Now()
				}
				return availability.Input{
					PeriodStart:       periodStart,
					TotalMinutes:      total,
					LastAcceptableEnd: cfg.Rules.LastAcceptableEnd,
				}
			}

			board := availability.NewBoard(fetcher, opts)
			return watch(ctx, cmd.OutOrStdout(), logger, board, input, interval, count)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Pin the first day, YYYY-MM-DD or RFC 3339 (default: today on every refresh)")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Time between refreshes")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many refreshes (0 runs until interrupted)")
	return cmd
}

// watch starts a refresh now and on every tick until ctx ends or count
// refreshes were started, then waits for the ones in flight.
func watch(ctx context.Context, out io.Writer, logger *slog.Logger, board *availability.Board, input func() availability.Input, interval time.Duration, count int) error {
	var (
		wg      sync.WaitGroup
		outMu   sync.Mutex
		printed uint64
		started int
	)
	defer wg.Wait()

	refresh := func() {
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := board.Refresh(ctx, input())
			switch {
			case errors.Is(err, availability.ErrStale):
				logger.Debug("stale refresh dropped", "generation", snap.Generation)
				return
			case err != nil:
				logger.Error("refresh failed", "generation", snap.Generation, "err", err)
				return
			}
			outMu.Lock()
			defer outMu.Unlock()
			if snap.Generation <= printed {
				return
			}
			printed = snap.Generation
			if err := writeJSON(out, watchFrame{Generation: snap.Generation, UpdatedAt: snap.UpdatedAt, Days: snap.Days}); err != nil {
				logger.Error("write failed", "err", err)
			}
		}()
	}

	refresh()
	if count > 0 && started >= count {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
			if count > 0 && started >= count {
				return nil
			}
		}
	}
}
