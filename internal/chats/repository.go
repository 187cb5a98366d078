package chats

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	"github.com/bazarmoz/bazar-backend/pkg/enums"
)

// Repository exposes chat message persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a chats repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append stores one message on the thread and returns the persisted row.
func (r *Repository) Append(ctx context.Context, chatID string, sender enums.ChatSender, message string) (*models.ChatMessage, error) {
	row := &models.ChatMessage{
		ID:         uuid.New(),
		ChatID:     chatID,
		SenderType: sender,
		Message:    message,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListByChat returns the thread's messages oldest first.
func (r *Repository) ListByChat(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
