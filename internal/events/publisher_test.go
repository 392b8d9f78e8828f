package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaPublisher_StatusChanged(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, createdTopic: "created", statusTopic: "status"}

	err := p.PublishStatusChanged(context.Background(), models.StatusChangedEvent{
		DiscrepancyID: "disc-1",
		From:          models.StatusDetected,
		To:            models.StatusEmailSent,
		Trigger:       "email_sent",
		ChangedAt:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "status", msg.Topic)
	assert.Equal(t, "disc-1", string(msg.Key))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "DETECTED", got["from"])
	assert.Equal(t, "EMAIL_SENT", got["to"])
}

func TestKafkaPublisher_CreatedUsesCreatedTopic(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, createdTopic: "created", statusTopic: "status"}

	require.NoError(t, p.PublishCreated(context.Background(), models.DiscrepancyCreatedEvent{DiscrepancyID: "disc-2"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "created", w.msgs[0].Topic)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &captureWriter{err: errors.New("broker down")}, statusTopic: "status"}

	err := p.PublishStatusChanged(context.Background(), models.StatusChangedEvent{DiscrepancyID: "disc-1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestLogPublisher(t *testing.T) {
	var p LogPublisher
	assert.NoError(t, p.PublishCreated(context.Background(), models.DiscrepancyCreatedEvent{}))
	assert.NoError(t, p.PublishStatusChanged(context.Background(), models.StatusChangedEvent{}))
}
