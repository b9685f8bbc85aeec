package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenantbook/reservations/libs/grpcx"
)

func newHealthCmd() *cobra.Command {
	var (
		addr    string
		service string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the gRPC health endpoint of a running availability-service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := grpcx.CheckHealth(ctx, addr, service); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC address")
	cmd.Flags().StringVar(&service, "service", "", "Health service name (empty for the whole server)")
	cmd.Flags().DurationVar(&timeout, "health-timeout", 3*time.Second, "Check timeout")
	return cmd
}
