package interfaces

//go:generate mockgen -destination=mocks/mock_infrastructure.go -package=mocks -source=infrastructure.go

import (
	"context"
	"errors"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
)

// ErrAlreadyClaimed is returned by KeyClaimer when another request holds the key.
var ErrAlreadyClaimed = errors.New("key already claimed")

// CodeSequence hands out increasing numbers for customer codes
type CodeSequence interface {
	Next(ctx context.Context) (int64, error)
}

// KeyClaimer gives one caller at a time the right to create a record for
// an import key. release must be called once the record is stored.
type KeyClaimer interface {
	Claim(ctx context.Context, key string) (release func(), err error)
}

// EventPublisher emits discrepancy domain events
type EventPublisher interface {
	PublishCreated(ctx context.Context, e models.DiscrepancyCreatedEvent) error
	PublishStatusChanged(ctx context.Context, e models.StatusChangedEvent) error
}

// MailTransport delivers rendered messages
type MailTransport interface {
	TestConnection(ctx context.Context, s models.SMTPSettings) error
	Send(ctx context.Context, s models.SMTPSettings, msg models.EmailMessage) error
}
