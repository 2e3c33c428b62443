package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationModel is the GORM model for customer messaging conversations.
// Orders without an explicit correlation attribute fall back to matching a
// conversation by the buyer's email or phone.
type ConversationModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	MerchantID    uuid.UUID `gorm:"type:uuid;not null;index:idx_conversations_merchant_email;index:idx_conversations_merchant_phone"`
	SenderKey     string    `gorm:"type:varchar(200);not null"`
	CustomerEmail string    `gorm:"type:varchar(320);index:idx_conversations_merchant_email"`
	CustomerPhone string    `gorm:"type:varchar(32);index:idx_conversations_merchant_phone"`
	LastMessageAt time.Time `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (ConversationModel) TableName() string {
	return "conversations"
}
