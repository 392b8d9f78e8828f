package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/mailer"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

// system_config keys of the email category.
const (
	keySMTPHost      = "smtp_host"
	keySMTPPort      = "smtp_port"
	keySMTPSecure    = "smtp_secure"
	keySMTPUser      = "smtp_user"
	keySMTPPass      = "smtp_pass"
	keySMTPFromName  = "smtp_from_name"
	keySMTPFromEmail = "smtp_from_email"
	keyDefaultCc     = "email_default_cc"
	keyDefaultBcc    = "email_default_bcc"
	keySignature     = "email_signature"

	settingsCategory = "email"
	maskedPassword   = "********"
)

var emailSettingKeys = []string{
	keySMTPHost, keySMTPPort, keySMTPSecure, keySMTPUser, keySMTPPass,
	keySMTPFromName, keySMTPFromEmail, keyDefaultCc, keyDefaultBcc, keySignature,
}

// SendRequest selects what to send for a discrepancy. TemplateID wins over Kind.
type SendRequest struct {
	Kind          string
	TemplateID    string
	CustomMessage string
	Cc            []string
	Bcc           []string
}

type EmailService struct {
	settings    interfaces.SettingsRepository
	templates   interfaces.TemplateRepository
	logs        interfaces.EmailLogRepository
	transport   interfaces.MailTransport
	defaults    models.SMTPSettings
	companyName string
	now         func() time.Time
}

func NewEmailService(
	settings interfaces.SettingsRepository,
	templates interfaces.TemplateRepository,
	logs interfaces.EmailLogRepository,
	transport interfaces.MailTransport,
	defaults models.SMTPSettings,
	companyName string,
) *EmailService {
	return &EmailService{
		settings:    settings,
		templates:   templates,
		logs:        logs,
		transport:   transport,
		defaults:    defaults,
		companyName: companyName,
		now:         time.Now,
	}
}

// Settings returns stored settings layered over the environment defaults.
func (s *EmailService) Settings(ctx context.Context) (models.EmailSettings, error) {
	stored, err := s.settings.Get(ctx, emailSettingKeys...)
	if err != nil {
		return models.EmailSettings{}, err
	}

	out := models.EmailSettings{SMTP: s.defaults}
	str := func(key string, dst *string) {
		if v, ok := stored[key]; ok && v != "" {
			*dst = v
		}
	}
	str(keySMTPHost, &out.SMTP.Host)
	str(keySMTPUser, &out.SMTP.User)
	str(keySMTPPass, &out.SMTP.Pass)
	str(keySMTPFromName, &out.SMTP.FromName)
	str(keySMTPFromEmail, &out.SMTP.FromEmail)
	str(keyDefaultCc, &out.DefaultCc)
	str(keyDefaultBcc, &out.DefaultBcc)
	str(keySignature, &out.Signature)
	if v, err := strconv.Atoi(stored[keySMTPPort]); err == nil {
		out.SMTP.Port = v
	}
	if v, err := strconv.ParseBool(stored[keySMTPSecure]); err == nil {
		out.SMTP.Secure = v
	}
	if out.SMTP.FromEmail == "" {
		out.SMTP.FromEmail = out.SMTP.User
	}
	return out, nil
}

// MaskedSettings is Settings with the password hidden.
func (s *EmailService) MaskedSettings(ctx context.Context) (models.EmailSettings, error) {
	out, err := s.Settings(ctx)
	if err != nil {
		return out, err
	}
	if out.SMTP.Pass != "" {
		out.SMTP.Pass = maskedPassword
	}
	return out, nil
}

// SaveSettings stores all email settings. An empty or masked password keeps
// the stored one.
func (s *EmailService) SaveSettings(ctx context.Context, in models.EmailSettings) error {
	values := map[string]string{
		keySMTPHost:      in.SMTP.Host,
		keySMTPPort:      strconv.Itoa(in.SMTP.Port),
		keySMTPSecure:    strconv.FormatBool(in.SMTP.Secure),
		keySMTPUser:      in.SMTP.User,
		keySMTPFromName:  in.SMTP.FromName,
		keySMTPFromEmail: in.SMTP.FromEmail,
		keyDefaultCc:     in.DefaultCc,
		keyDefaultBcc:    in.DefaultBcc,
		keySignature:     in.Signature,
	}
	if in.SMTP.Pass != "" && in.SMTP.Pass != maskedPassword {
		values[keySMTPPass] = in.SMTP.Pass
	}
	return s.settings.Set(ctx, settingsCategory, values)
}

// TestConnection checks the given settings, or the stored ones when nil.
// A failed dial is reported in the result, not as an error.
func (s *EmailService) TestConnection(ctx context.Context, override *models.SMTPSettings) (bool, string, error) {
	smtp := s.defaults
	if override != nil {
		smtp = *override
		if smtp.Pass == maskedPassword {
			stored, err := s.Settings(ctx)
			if err != nil {
				return false, "", err
			}
			smtp.Pass = stored.SMTP.Pass
		}
	} else {
		stored, err := s.Settings(ctx)
		if err != nil {
			return false, "", err
		}
		smtp = stored.SMTP
	}

	if err := s.transport.TestConnection(ctx, smtp); err != nil {
		telemetry.Logger.Warn("SMTP connection test failed", zap.String("host", smtp.Host), zap.Error(err))
		return false, err.Error(), nil
	}
	return true, "", nil
}

// SendTest sends a fixed test message to the given address and logs it.
func (s *EmailService) SendTest(ctx context.Context, to string) (*models.EmailLog, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	subject := "Test email from the AR system"
	body := "This is a test email.\nSent at: " + s.now().Format(time.RFC3339)
	return s.deliver(ctx, settings, deliveryLog{}, models.EmailMessage{
		To:       to,
		Subject:  subject,
		HTMLBody: mailer.ToHTML(body),
	}, body)
}

// SendForDiscrepancy renders and sends a message about d. Transport failures
// produce a FAILED log and no error; only storage errors are returned.
func (s *EmailService) SendForDiscrepancy(ctx context.Context, d *models.PaymentDiscrepancy, customer *models.Customer, req SendRequest) (*models.EmailLog, error) {
	if customer.Email == nil || *customer.Email == "" {
		return nil, apperror.BadRequest("CUSTOMER_EMAIL_MISSING", "Customer has no email address")
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	var subject, body string
	var templateID *string
	prepend := req.CustomMessage
	if req.TemplateID != "" {
		t, err := s.templates.GetByID(ctx, req.TemplateID)
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("Email template")
		}
		if err != nil {
			return nil, err
		}
		subject, body, templateID = t.Subject, t.Body, &t.ID
	} else {
		subject, body = mailer.Builtin(req.Kind, req.CustomMessage)
		if req.Kind == mailer.KindCustom {
			prepend = ""
		}
	}

	vars := mailer.Variables(d, customer, settings.SMTP.FromName, s.companyNameOr(settings))
	subject = mailer.Render(subject, vars)
	body = mailer.Compose(prepend, mailer.Render(body, vars), settings.Signature)

	msg := models.EmailMessage{
		To:       *customer.Email,
		Cc:       append(append([]string{}, req.Cc...), mailer.SplitAddresses(settings.DefaultCc)...),
		Bcc:      append(append([]string{}, req.Bcc...), mailer.SplitAddresses(settings.DefaultBcc)...),
		Subject:  subject,
		HTMLBody: mailer.ToHTML(body),
	}
	return s.deliver(ctx, settings, deliveryLog{
		discrepancyID: &d.ID,
		customerID:    &d.CustomerID,
		templateID:    templateID,
	}, msg, body)
}

type deliveryLog struct {
	discrepancyID *string
	customerID    *string
	templateID    *string
}

func (s *EmailService) deliver(ctx context.Context, settings models.EmailSettings, ref deliveryLog, msg models.EmailMessage, body string) (*models.EmailLog, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "EmailService.deliver")
	defer span.End()

	log := &models.EmailLog{
		ID:            uuid.NewString(),
		DiscrepancyID: ref.discrepancyID,
		CustomerID:    ref.customerID,
		TemplateID:    ref.templateID,
		Sender:        settings.SMTP.FromEmail,
		Recipient:     msg.To,
		Cc:            msg.Cc,
		Bcc:           msg.Bcc,
		Subject:       msg.Subject,
		Body:          body,
	}

	if err := s.transport.Send(ctx, settings.SMTP, msg); err != nil {
		errMsg := err.Error()
		log.Status = models.EmailFailed
		log.ErrorMessage = &errMsg
		telemetry.Logger.Warn("Email send failed",
			zap.String("recipient", msg.To),
			zap.Error(err),
		)
	} else {
		sentAt := s.now()
		log.Status = models.EmailSent
		log.SentAt = &sentAt
	}
	telemetry.EmailsSent.WithLabelValues(string(log.Status)).Inc()

	if err := s.logs.Create(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *EmailService) companyNameOr(settings models.EmailSettings) string {
	if s.companyName != "" {
		return s.companyName
	}
	return settings.SMTP.FromName
}

func (s *EmailService) Logs(ctx context.Context, f models.EmailLogFilter) ([]models.EmailLog, models.Pagination, error) {
	f.Page, f.Limit = models.PageBounds(f.Page, f.Limit)
	items, total, err := s.logs.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(total, f.Page, f.Limit), nil
}

func (s *EmailService) Templates(ctx context.Context, activeOnly bool) ([]models.EmailTemplate, error) {
	return s.templates.List(ctx, activeOnly)
}

func (s *EmailService) CreateTemplate(ctx context.Context, actor models.Actor, t *models.EmailTemplate) error {
	t.ID = uuid.NewString()
	t.IsActive = true
	if actor.UserID != "" {
		t.CreatedByID = &actor.UserID
	}
	if len(t.Variables) == 0 {
		t.Variables = mailer.Placeholders(t.Subject, t.Body)
	}
	return s.templates.Create(ctx, t)
}

// TemplateInput is a partial template edit. Nil fields are kept.
type TemplateInput struct {
	Name      *string
	Subject   *string
	Body      *string
	Type      *string
	Stage     *string
	Variables []string
	IsActive  *bool
}

func (s *EmailService) UpdateTemplate(ctx context.Context, id string, in TemplateInput) (*models.EmailTemplate, error) {
	t, err := s.templates.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound("Email template")
	}
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		t.Name = *in.Name
	}
	if in.Subject != nil {
		t.Subject = *in.Subject
	}
	if in.Body != nil {
		t.Body = *in.Body
	}
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Stage != nil {
		t.Stage = in.Stage
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	if in.Variables != nil {
		t.Variables = in.Variables
	} else if in.Subject != nil || in.Body != nil {
		t.Variables = mailer.Placeholders(t.Subject, t.Body)
	}
	if err := s.templates.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *EmailService) DeleteTemplate(ctx context.Context, id string) error {
	err := s.templates.Delete(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotFound("Email template")
	}
	return err
}
