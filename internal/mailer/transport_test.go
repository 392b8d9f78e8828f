package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

func TestSMTPTransportRequiresSettings(t *testing.T) {
	tr := NewSMTPTransport(10)

	err := tr.Send(context.Background(), models.SMTPSettings{}, models.EmailMessage{To: "a@x.test"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = tr.TestConnection(context.Background(), models.SMTPSettings{Port: 587})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildMessage(t *testing.T) {
	s := models.SMTPSettings{Host: "smtp.example.com", Port: 587, FromName: "AR", FromEmail: "ar@example.com"}

	msg, err := buildMessage(s, models.EmailMessage{
		To:       "customer@example.com",
		Cc:       []string{"boss@example.com"},
		Subject:  "Reminder",
		HTMLBody: "Hello<br>World",
	})
	require.NoError(t, err)
	assert.NotNil(t, msg)

	_, err = buildMessage(s, models.EmailMessage{To: "not an address"})
	assert.Error(t, err)
}

func TestSendWaitsOnCancelledContext(t *testing.T) {
	tr := NewSMTPTransport(1)
	s := models.SMTPSettings{Host: "127.0.0.1", Port: 1, FromEmail: "ar@example.com"}
	m := models.EmailMessage{To: "customer@example.com"}

	// Drain the single burst token, then a cancelled context fails the wait.
	require.True(t, tr.limiter.Allow())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.Send(ctx, s, m), context.Canceled)
}

func TestDryRunTransport(t *testing.T) {
	var tr DryRunTransport
	assert.NoError(t, tr.TestConnection(context.Background(), models.SMTPSettings{}))
	assert.NoError(t, tr.Send(context.Background(), models.SMTPSettings{}, models.EmailMessage{To: "a@x.test"}))
}
