package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a shopper account, including the referral program state.
type User struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string          `gorm:"column:name;not null"`
	Email             string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash      string          `gorm:"column:password_hash;not null"`
	ReferralCode      string          `gorm:"column:referral_code;not null;uniqueIndex"`
	ReferralCount     int             `gorm:"column:referral_count;not null;default:0"`
	AvailableDiscount decimal.Decimal `gorm:"column:available_discount;type:numeric(12,2);not null;default:0"`
	ReferredBy        *uuid.UUID      `gorm:"column:referred_by;type:uuid"`
	LocationLatitude  *float64        `gorm:"column:location_latitude"`
	LocationLongitude *float64        `gorm:"column:location_longitude"`
	LastLoginAt       *time.Time      `gorm:"column:last_login_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
