package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes discrepancy events keyed by discrepancy id, so all
// events of one discrepancy land on the same partition.
type KafkaPublisher struct {
	writer       messageWriter
	createdTopic string
	statusTopic  string
}

func NewKafkaPublisher(brokers []string, createdTopic, statusTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		createdTopic: createdTopic,
		statusTopic:  statusTopic,
	}
}

func (p *KafkaPublisher) PublishCreated(ctx context.Context, e models.DiscrepancyCreatedEvent) error {
	return p.publish(ctx, p.createdTopic, e.DiscrepancyID, e)
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, e models.StatusChangedEvent) error {
	return p.publish(ctx, p.statusTopic, e.DiscrepancyID, e)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs events. It is used when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) PublishCreated(_ context.Context, e models.DiscrepancyCreatedEvent) error {
	telemetry.Logger.Info("Discrepancy created",
		zap.String("discrepancy_id", e.DiscrepancyID),
		zap.String("customer_id", e.CustomerID),
		zap.String("intervention_level", string(e.InterventionLevel)),
		zap.String("source", e.Source),
	)
	return nil
}

func (LogPublisher) PublishStatusChanged(_ context.Context, e models.StatusChangedEvent) error {
	telemetry.Logger.Info("Discrepancy status changed",
		zap.String("discrepancy_id", e.DiscrepancyID),
		zap.String("from_status", string(e.From)),
		zap.String("to_status", string(e.To)),
		zap.String("trigger", e.Trigger),
	)
	return nil
}
