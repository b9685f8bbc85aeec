package kafkax

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is a single message to publish. Key drives partitioning.
type Event struct {
	ID      string
	Type    string
	Key     string
	Payload []byte
}

// Writer publishes events to one topic with event metadata and trace headers.
type Writer struct {
	w *kafka.Writer
}

func NewWriter(brokers []string, topic string) *Writer {
	return &Writer{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}}
}

func (w *Writer) Publish(ctx context.Context, evt Event) error {
	return w.w.WriteMessages(ctx, Message(ctx, evt))
}

func (w *Writer) Close() error {
	return w.w.Close()
}

// Message builds the kafka message for evt, including trace headers from ctx.
func Message(ctx context.Context, evt Event) kafka.Message {
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(evt.ID)},
		{Key: HeaderEventType, Value: []byte(evt.Type)},
	}
	return kafka.Message{
		Key:     []byte(evt.Key),
		Value:   evt.Payload,
		Headers: InjectTraceHeaders(ctx, headers),
		Time:    time.Now().UTC(),
	}
}
