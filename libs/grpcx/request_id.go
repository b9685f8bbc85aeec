package grpcx

import (
	"context"

	"github.com/google/uuid"
	"github.com/tenantbook/reservations/libs/httpx"
)

// RequestIDMetadataKey is the gRPC metadata key for request ids. gRPC
// metadata keys are lowercase.
const RequestIDMetadataKey = "x-request-id"

// RequestIDFromContext shares the HTTP context key so logging helpers see
// the same id regardless of transport.
func RequestIDFromContext(ctx context.Context) string {
	return httpx.RequestIDFromContext(ctx)
}

func newRequestID() string {
	return uuid.NewString()
}
