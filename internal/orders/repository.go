package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

// Repository persists immutable orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts the order and its items inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Order, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns the user's orders newest first, items included.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("order_date DESC").
		Find(&rows).Error
	return rows, err
}

// CountByUser returns how many orders the user has placed.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// FindByID loads one order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
