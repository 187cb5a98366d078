package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits the password hash.
type UserDTO struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	ReferralCode      string     `json:"referral_code"`
	ReferralCount     int        `json:"referral_count"`
	AvailableDiscount string     `json:"available_discount"`
	LocationLatitude  *float64   `json:"location_latitude,omitempty"`
	LocationLongitude *float64   `json:"location_longitude,omitempty"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FromModel maps a persisted user onto the transport DTO.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		ReferralCode:      u.ReferralCode,
		ReferralCount:     u.ReferralCount,
		AvailableDiscount: u.AvailableDiscount.StringFixed(2),
		LocationLatitude:  u.LocationLatitude,
		LocationLongitude: u.LocationLongitude,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
	}
}

// SignupRequest contains the payload for creating a shopper account.
type SignupRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginRequest carries the credentials for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by both signup and login.
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	User        *UserDTO `json:"user"`
}

// ProfileResponse bundles the account with its referral stats and order count.
type ProfileResponse struct {
	User       *UserDTO `json:"user"`
	OrderCount int64    `json:"order_count"`
}

// UpdateLocationRequest carries the coordinates to persist.
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
