package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

var ErrNotConfigured = errors.New("smtp is not configured")

const dialTimeout = 15 * time.Second

// SMTPTransport delivers mail with the settings passed on each call, so
// changes saved through the settings API apply without a restart. Sends
// are throttled by a shared limiter.
type SMTPTransport struct {
	limiter *rate.Limiter
}

func NewSMTPTransport(perSecond float64) *SMTPTransport {
	return &SMTPTransport{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (t *SMTPTransport) client(s models.SMTPSettings) (*mail.Client, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTimeout(dialTimeout),
	}
	if s.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.User),
			mail.WithPassword(s.Pass),
		)
	}
	return mail.NewClient(s.Host, opts...)
}

// TestConnection dials and authenticates without sending anything.
func (t *SMTPTransport) TestConnection(ctx context.Context, s models.SMTPSettings) error {
	c, err := t.client(s)
	if err != nil {
		return err
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", s.Host, s.Port, err)
	}
	return c.Close()
}

func (t *SMTPTransport) Send(ctx context.Context, s models.SMTPSettings, m models.EmailMessage) error {
	c, err := t.client(s)
	if err != nil {
		return err
	}
	msg, err := buildMessage(s, m)
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func buildMessage(s models.SMTPSettings, m models.EmailMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.FromName, s.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if len(m.Cc) > 0 {
		if err := msg.Cc(m.Cc...); err != nil {
			return nil, fmt.Errorf("invalid cc: %w", err)
		}
	}
	if len(m.Bcc) > 0 {
		if err := msg.Bcc(m.Bcc...); err != nil {
			return nil, fmt.Errorf("invalid bcc: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTMLBody)
	return msg, nil
}

// DryRunTransport logs messages instead of sending them.
type DryRunTransport struct{}

func (DryRunTransport) TestConnection(_ context.Context, s models.SMTPSettings) error {
	telemetry.Logger.Info("Dry-run SMTP connection test", zap.String("host", s.Host))
	return nil
}

func (DryRunTransport) Send(_ context.Context, s models.SMTPSettings, m models.EmailMessage) error {
	telemetry.Logger.Info("Dry-run email",
		zap.String("from", s.FromEmail),
		zap.String("to", m.To),
		zap.Strings("cc", m.Cc),
		zap.String("subject", m.Subject),
	)
	return nil
}
