package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

// Repository wires catalog persistence to GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListProducts returns all products, optionally filtered by category.
func (r *Repository) ListProducts(ctx context.Context, category string) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
	if strings.TrimSpace(category) != "" {
		query = query.Where("category = ?", category)
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListFamilies returns every family metadata row.
func (r *Repository) ListFamilies(ctx context.Context) ([]models.ProductFamily, error) {
	var families []models.ProductFamily
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&families).Error; err != nil {
		return nil, err
	}
	return families, nil
}

// FindProduct loads one product by exact id.
func (r *Repository) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindFamily loads the family metadata row by id.
func (r *Repository) FindFamily(ctx context.Context, id string) (*models.ProductFamily, error) {
	var family models.ProductFamily
	if err := r.db.WithContext(ctx).First(&family, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &family, nil
}

// ListVariants returns the products belonging to the family, by explicit
// family_id or by the legacy id prefix.
func (r *Repository) ListVariants(ctx context.Context, familyID string) ([]models.Product, error) {
	var variants []models.Product
	err := r.db.WithContext(ctx).
		Where("family_id = ? OR id LIKE ?", familyID, familyID+"-%").
		Order("id ASC").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// ErrInsufficientStock signals a conditional stock decrement that matched no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// DecrementStock reduces a product's stock only when enough remains. The
// guard in the WHERE clause makes concurrent checkouts serialize correctly.
func (r *Repository) DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	result := tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
