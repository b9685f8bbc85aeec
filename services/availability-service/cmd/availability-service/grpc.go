package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/tenantbook/reservations/libs/config"
	"github.com/tenantbook/reservations/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// startGrpcServer serves grpc.health.v1.Health on GRPC_PORT unless
// GRPC_ENABLED is false.
func startGrpcServer(ctx context.Context, logger *slog.Logger) error {
	if !config.Bool("GRPC_ENABLED", true) {
		return nil
	}
	port, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, hs := grpcx.NewServer(logger)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}
