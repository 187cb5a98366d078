package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
)

// Service exposes storefront catalog reads.
type Service interface {
	DisplayList(ctx context.Context, category string) ([]DisplayProduct, error)
	ProductDetail(ctx context.Context, id string) (*ProductDetail, error)
	PickVariant(ctx context.Context, familyID, variantType, size string) (*models.Product, error)
}

// ProductDetail is a product page payload: either a family (variants plus
// facets) or a single standalone product.
type ProductDetail struct {
	Representative DisplayProduct   `json:"product"`
	Variants       []models.Product `json:"variants,omitempty"`
	Facets         *Facets          `json:"facets,omitempty"`
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// DisplayList returns the storefront listing with families collapsed.
func (s *service) DisplayList(ctx context.Context, category string) ([]DisplayProduct, error) {
	products, err := s.repo.ListProducts(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	families, err := s.repo.ListFamilies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list families")
	}
	return ResolveDisplayList(families, products), nil
}

// ProductDetail resolves a catalog id that may name a family, a variant, or
// a standalone product.
func (s *service) ProductDetail(ctx context.Context, id string) (*ProductDetail, error) {
	family, err := s.repo.FindFamily(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find family")
	}

	if family != nil && err == nil {
		variants, err := s.repo.ListVariants(ctx, family.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list variants")
		}
		totalStock := 0
		for _, variant := range variants {
			totalStock += variant.Stock
		}
		facets := ResolveFacets(variants)
		return &ProductDetail{
			Representative: DisplayProduct{
				ID:          family.ID,
				Name:        family.Name,
				Description: family.Description,
				Category:    family.Category,
				Price:       family.BasePrice,
				Stock:       totalStock,
				ImageURL:    family.ImageURL,
				ImageHint:   family.ImageHint,
				IsFamily:    true,
			},
			Variants: variants,
			Facets:   &facets,
		}, nil
	}

	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find product")
	}

	return &ProductDetail{
		Representative: DisplayProduct{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Category:    product.Category,
			Price:       product.Price,
			Stock:       product.Stock,
			ImageURL:    product.ImageURL,
			ImageHint:   product.ImageHint,
		},
	}, nil
}

// PickVariant resolves a family's variant from its type/size facets.
func (s *service) PickVariant(ctx context.Context, familyID, variantType, size string) (*models.Product, error) {
	variants, err := s.repo.ListVariants(ctx, familyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list variants")
	}
	variant, ok := SelectVariant(variants, variantType, size)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no variant matches the selected options")
	}
	return variant, nil
}
