package reservations

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tenantbook/reservations/libs/kafkax"
)

// EventReservationRequested is the event type of published reservations.
const EventReservationRequested = "reservation.requested.v1"

type Publisher interface {
	Publish(ctx context.Context, res Reservation) error
}

type eventWriter interface {
	Publish(ctx context.Context, evt kafkax.Event) error
}

// KafkaPublisher emits reservations keyed by store so a store's requests stay
// ordered within a partition.
type KafkaPublisher struct {
	w eventWriter
}

func NewKafkaPublisher(w *kafkax.Writer) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, res Reservation) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return p.w.Publish(ctx, kafkax.Event{
		ID:      res.ID,
		Type:    EventReservationRequested,
		Key:     res.StoreID,
		Payload: payload,
	})
}

// LogPublisher only logs reservations. It is used when no brokers are set.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, res Reservation) error {
	p.logger.Warn("kafka disabled; reservation not forwarded",
		"event_type", EventReservationRequested,
		"reservation_id", res.ID,
		"store_id", res.StoreID,
	)
	return nil
}
