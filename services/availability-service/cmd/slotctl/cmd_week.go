package main

import (
	"github.com/spf13/cobra"

	"github.com/tenantbook/reservations/services/availability-service/internal/reservations"
)

func newWeekCmd(g *globalFlags) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print seven days of available start times as JSON",
		Long: `Fetch the store's calendar once and print the available slot starts for
the seven days beginning at --start (default today).

Examples:
  slotctl week --store salon-a -m カット --start 2026-10-19`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := g.newService(g.logger(cmd.ErrOrStderr()))
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
			periodStart, err := reservations.ParsePeriodStart(start, opts.Location, svc.Now())
			if err != nil {
				return err
			}
			wk, err := svc.WeekFor(ctx, cfg, g.selection(), periodStart)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), wk)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD or RFC 3339")
	return cmd
}
