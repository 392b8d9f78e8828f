package models

import "time"

type EmailStatus string

const (
	EmailPending   EmailStatus = "PENDING"
	EmailSent      EmailStatus = "SENT"
	EmailFailed    EmailStatus = "FAILED"
	EmailDelivered EmailStatus = "DELIVERED"
	EmailBounced   EmailStatus = "BOUNCED"
)

// EmailLog records a single send attempt and is never edited afterwards.
type EmailLog struct {
	ID            string      `json:"id"`
	DiscrepancyID *string     `json:"discrepancyId,omitempty"`
	CustomerID    *string     `json:"customerId,omitempty"`
	TemplateID    *string     `json:"templateId,omitempty"`
	Sender        string      `json:"sender"`
	Recipient     string      `json:"recipient"`
	Cc            []string    `json:"cc,omitempty"`
	Bcc           []string    `json:"bcc,omitempty"`
	Subject       string      `json:"subject"`
	Body          string      `json:"body"`
	Status        EmailStatus `json:"status"`
	SentAt        *time.Time  `json:"sentAt,omitempty"`
	ErrorMessage  *string     `json:"errorMessage,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type EmailLogFilter struct {
	Status        EmailStatus
	DiscrepancyID string
	CustomerID    string
	Page          int
	Limit         int
}

type EmailTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Type        string    `json:"type"`
	Stage       *string   `json:"stage,omitempty"`
	Variables   []string  `json:"variables"`
	IsActive    bool      `json:"isActive"`
	CreatedByID *string   `json:"createdById,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SMTPSettings is the transport configuration kept in system_config.
type SMTPSettings struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Secure    bool   `json:"secure"`
	User      string `json:"user"`
	Pass      string `json:"pass,omitempty"`
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail"`
}

func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.FromEmail != ""
}

type EmailSettings struct {
	SMTP       SMTPSettings `json:"smtp"`
	DefaultCc  string       `json:"defaultCc"`
	DefaultBcc string       `json:"defaultBcc"`
	Signature  string       `json:"signature"`
}

// EmailMessage is a rendered message ready for a transport.
type EmailMessage struct {
	To       string
	Cc       []string
	Bcc      []string
	Subject  string
	HTMLBody string
}

type SendEmailResult struct {
	Sent           bool              `json:"sent"`
	EmailLogID     string            `json:"emailLogId"`
	Status         EmailStatus       `json:"status"`
	Error          string            `json:"error,omitempty"`
	PreviousStatus DiscrepancyStatus `json:"previousStatus"`
	CurrentStatus  DiscrepancyStatus `json:"currentStatus"`
	StatusChanged  bool              `json:"statusChanged"`
}
