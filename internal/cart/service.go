package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
)

// Service exposes per-user cart operations backed by the snapshot store.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID string) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type productFinder interface {
	FindProduct(ctx context.Context, id string) (*models.Product, error)
}

type service struct {
	store   *Store
	catalog productFinder
}

// NewService constructs a cart service instance.
func NewService(store *Store, catalog productFinder) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product finder required")
	}
	return &service{store: store, catalog: catalog}, nil
}

// Get loads the user's current cart.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.store.Load(ctx, userID), nil
}

// AddItem adds quantity of the product, enforcing the stock ceiling against
// the live catalog record.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find product")
	}

	cart := s.store.Load(ctx, userID)
	if !cart.Add(*product, quantity) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	if err := s.store.Save(ctx, userID, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: save cart")
	}
	return cart, nil
}

// RemoveItem deletes the product line; removing an absent line succeeds.
func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) (*Cart, error) {
	cart := s.store.Load(ctx, userID)
	cart.Remove(productID)
	if err := s.store.Save(ctx, userID, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: save cart")
	}
	return cart, nil
}

// Clear empties the cart and erases the persisted snapshot.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: delete cart")
	}
	return nil
}
