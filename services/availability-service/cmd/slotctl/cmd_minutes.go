package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMinutesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "minutes",
		Short: "Print the booking length of a selection",
		Long: `Print the total minutes for the selected visit, menus and options.

Unknown menu or option names add nothing and are reported on stderr.

Examples:
  slotctl minutes --store salon-a --visit '1回目〈30分〉' -m カット -m カラー -o ヘッドスパ`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			svc, err := g.newService(logger)
			if err != nil {
				return err
			}
			total, _, err := svc.Duration(cmd.Context(), g.storeID, g.selection())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), total)
			return err
		},
	}
}
