package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsync/backend/internal/domain/order"
)

// DeadLetterModel is the persistence model for a failed webhook event
// awaiting bounded retry. Keyed by the stable idempotency key so redelivery
// of the same failing event is an update, never a duplicate row.
type DeadLetterModel struct {
	Key             string    `gorm:"type:varchar(200);primary_key"`
	MerchantID      uuid.UUID `gorm:"type:uuid;not null;index:idx_dead_letters_merchant"`
	UpstreamOrderID string    `gorm:"type:varchar(100);not null"`
	EventID         string    `gorm:"type:varchar(100);not null"`
	Payload         []byte    `gorm:"type:bytea;not null"`
	Attempts        int       `gorm:"not null;default:0"`
	LastError       string    `gorm:"type:text"`
	FirstFailedAt   time.Time `gorm:"not null;index:idx_dead_letters_first_failed_at"`
	LastAttemptAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeadLetterModel) TableName() string {
	return "dead_letters"
}

// ToDomain converts the persistence model to a domain DeadLetterEntry.
func (m *DeadLetterModel) ToDomain() *order.DeadLetterEntry {
	return &order.DeadLetterEntry{
		Key:             m.Key,
		MerchantID:      m.MerchantID,
		UpstreamOrderID: m.UpstreamOrderID,
		EventID:         m.EventID,
		Payload:         m.Payload,
		Attempts:        m.Attempts,
		LastError:       m.LastError,
		FirstFailedAt:   m.FirstFailedAt,
		LastAttemptAt:   m.LastAttemptAt,
	}
}

// FromDomain populates the persistence model from a domain DeadLetterEntry.
func (m *DeadLetterModel) FromDomain(e *order.DeadLetterEntry) {
	m.Key = e.Key
	m.MerchantID = e.MerchantID
	m.UpstreamOrderID = e.UpstreamOrderID
	m.EventID = e.EventID
	m.Payload = e.Payload
	m.Attempts = e.Attempts
	m.LastError = e.LastError
	m.FirstFailedAt = e.FirstFailedAt
	m.LastAttemptAt = e.LastAttemptAt
}

// DeadLetterModelFromDomain creates a new persistence model from a domain DeadLetterEntry.
func DeadLetterModelFromDomain(e *order.DeadLetterEntry) *DeadLetterModel {
	m := &DeadLetterModel{}
	m.FromDomain(e)
	return m
}
