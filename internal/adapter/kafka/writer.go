package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nikhaldi/mobility-growth/internal/config"
	"github.com/nikhaldi/mobility-growth/internal/domain"
)

// Writer publishes aggregation snapshots to a Kafka topic, one message per
// aggregated region. It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshot serializes every row of the snapshot and publishes them in
// a single WriteMessages call. An empty snapshot publishes nothing.
func (w *Writer) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	if len(snap.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Rows))
	for i := range snap.Rows {
		msg, err := serializeToMessage(snap, snap.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// rowMessage is the published form of one aggregated region, carrying
// enough snapshot context to be consumed standalone.
type rowMessage struct {
	domain.RegionRow
	State      string    `json:"state"`
	ComputedAt time.Time `json:"computed_at"`
}

// serializeToMessage marshals one aggregated region into a Kafka message
// keyed by region id.
func serializeToMessage(snap domain.Snapshot, row domain.RegionRow) (kafkago.Message, error) {
	data, err := json.Marshal(rowMessage{
		RegionRow:  row,
		State:      snap.Params.State,
		ComputedAt: snap.ComputedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.RegionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "state", Value: []byte(snap.Params.State)},
			{Key: "computed_at", Value: []byte(snap.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
