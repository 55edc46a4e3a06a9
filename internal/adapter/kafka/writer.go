// Package kafka publishes dispatch decision audit records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/aerial-dispatch-service/internal/config"
	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
)

// Writer publishes one message per decision to the audit topic.
// It implements pipeline.Auditor.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured audit topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAuditTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Append publishes a finalized decision, keyed by decision ID so replays of
// the same decision land in the same partition.
func (w *Writer) Append(ctx context.Context, decision domain.DispatchDecision) error {
	msg, err := serializeToMessage(decision)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a decision into a Kafka message.
func serializeToMessage(decision domain.DispatchDecision) (kafkago.Message, error) {
	data, err := json.Marshal(decision)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dispatch decision: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(decision.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "mode", Value: []byte(decision.Mode)},
			{Key: "triggered_rule", Value: []byte(decision.TriggeredRule)},
			{Key: "decided_at", Value: []byte(decision.DecidedAt.Format(time.RFC3339))},
		},
	}, nil
}
