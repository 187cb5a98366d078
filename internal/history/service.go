package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/internal/catalog"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
)

// Service tracks the products a user recently viewed.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	Record(ctx context.Context, userID uuid.UUID, productID string) ([]Entry, error)
}

type productFinder interface {
	FindProduct(ctx context.Context, id string) (*models.Product, error)
}

type service struct {
	store      *Store
	catalog    productFinder
	maxEntries int
	now        func() time.Time
}

// NewService constructs a history service instance.
func NewService(store *Store, finder productFinder, cfg config.HistoryConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("history store required")
	}
	if finder == nil {
		return nil, fmt.Errorf("product finder required")
	}
	max := cfg.MaxEntries
	if max <= 0 {
		max = 6
	}
	return &service{store: store, catalog: finder, maxEntries: max, now: time.Now}, nil
}

// List returns the user's recent views, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	return s.store.Load(ctx, userID), nil
}

// Record notes a product view, collapsing other variants of its family.
func (s *service) Record(ctx context.Context, userID uuid.UUID, productID string) ([]Entry, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find product")
	}

	entry := Entry{
		ProductID: product.ID,
		FamilyID:  catalog.FamilyIDOf(*product),
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		ImageURL:  product.ImageURL,
		ViewedAt:  s.now(),
	}

	entries := push(s.store.Load(ctx, userID), entry, s.maxEntries)
	if err := s.store.Save(ctx, userID, entries); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: save history")
	}
	return entries, nil
}
