package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazarmoz/bazar-backend/pkg/enums"
)

// ChatMessage is one message in an assistant conversation thread.
type ChatMessage struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChatID     string           `gorm:"column:chat_id;not null;index"`
	SenderType enums.ChatSender `gorm:"column:sender_type;not null"`
	Message    string           `gorm:"column:message;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}
