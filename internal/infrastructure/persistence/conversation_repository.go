package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsync/backend/internal/domain/upstream"
	"github.com/shopsync/backend/internal/infrastructure/persistence/models"
)

// GormConversationRepository implements upstream.ConversationLookup backed by
// the conversations table. The most recent conversation wins when the buyer
// matches more than one.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new conversation repository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// FindCorrelationKey returns the sender key of the latest conversation
// matching the buyer's email or phone, or "" when none matches.
func (r *GormConversationRepository) FindCorrelationKey(ctx context.Context, merchantID uuid.UUID, email, phone string) (string, error) {
	if email == "" && phone == "" {
		return "", nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.ConversationModel{}).
		Where("merchant_id = ?", merchantID)

	switch {
	case email != "" && phone != "":
		query = query.Where("customer_email = ? OR customer_phone = ?", email, phone)
	case email != "":
		query = query.Where("customer_email = ?", email)
	default:
		query = query.Where("customer_phone = ?", phone)
	}

	var senderKey string
	err := query.Order("last_message_at DESC").
		Limit(1).
		Pluck("sender_key", &senderKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up conversation: %w", err)
	}

	return senderKey, nil
}

// Ensure GormConversationRepository implements ConversationLookup
var _ upstream.ConversationLookup = (*GormConversationRepository)(nil)
