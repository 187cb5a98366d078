package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

// ErrInsufficientBalance is returned when a discount decrement would push the
// user's available balance below zero.
var ErrInsufficientBalance = errors.New("insufficient discount balance")

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByReferralCode resolves a referral code to its owner.
func (r *Repository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreditReferral bumps the referrer's count and adds the signup bonus to
// their discount balance, returning the updated row.
func (r *Repository) CreditReferral(ctx context.Context, id uuid.UUID, bonus decimal.Decimal) (*models.User, error) {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"referral_count":     gorm.Expr("referral_count + 1"),
			"available_discount": gorm.Expr("available_discount + ?", bonus),
		}).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// DecrementDiscount subtracts amount from the user's balance inside the
// caller's transaction. The WHERE guard keeps two concurrent checkouts from
// both draining the same credit.
func (r *Repository) DecrementDiscount(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	result := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND available_discount >= ?", id, amount).
		UpdateColumn("available_discount", gorm.Expr("available_discount - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// UpdateLocation overwrites the user's saved delivery coordinates.
func (r *Repository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"location_latitude":  lat,
			"location_longitude": lng,
		}).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
