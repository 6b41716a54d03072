// Package kafka publishes analysis lifecycle events to the message bus.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/corpgraph/CorpRisk-Insight/internal/config"
	"github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/monitoring/logging"
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	"github.com/corpgraph/CorpRisk-Insight/pkg/types/risk"
)

const defaultTopic = "corprisk.analysis.completed"

// Producer emits one message per completed analysis run, keyed by scenario so
// consumers can partition per scenario while preserving per-scenario order.
type Producer struct {
	writer *kafka.Writer
	log    logging.Logger
}

// NewProducer returns nil when no brokers are configured. A nil *Producer is
// a valid EventPublisher that drops events, so callers can wire it
// unconditionally.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxRetries,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, log: log.Named("kafka")}
}

// PublishAnalysisCompleted sends the run metadata for one finished scenario.
func (p *Producer) PublishAnalysisCompleted(ctx context.Context, meta risk.Meta) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode analysis event")
	}
	msg := kafka.Message{
		Key:   []byte(meta.Scenario),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessagingError, "publish analysis event")
	}
	p.log.Debug("analysis event published",
		logging.String("scenario", string(meta.Scenario)),
		logging.String("run_id", meta.RunID))
	return nil
}

// Close flushes buffered messages and releases the writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
