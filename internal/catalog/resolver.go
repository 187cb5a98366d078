package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

// FamilyIDOf returns the family a product belongs to. The explicit column
// wins; legacy rows fall back to the id prefix convention "<familyId>-<key>".
func FamilyIDOf(product models.Product) string {
	if product.FamilyID != nil && *product.FamilyID != "" {
		return *product.FamilyID
	}
	if idx := strings.Index(product.ID, "-"); idx > 0 {
		return product.ID[:idx]
	}
	return ""
}

// DisplayProduct is one card in a storefront listing. A family of variants
// collapses into a single synthetic representative whose stock aggregates
// the variants.
type DisplayProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"imageUrl"`
	ImageHint   string          `json:"imageHint,omitempty"`
	IsFamily    bool            `json:"isFamily"`
}

// Facets are the distinct type/size options derived from variant names.
type Facets struct {
	Types []string `json:"types"`
	Sizes []string `json:"sizes"`
}

// ResolveDisplayList collapses family variants into one representative card
// per family. Representatives come first, then standalone products in their
// original relative order.
func ResolveDisplayList(families []models.ProductFamily, products []models.Product) []DisplayProduct {
	familyByID := make(map[string]models.ProductFamily, len(families))
	for _, family := range families {
		familyByID[family.ID] = family
	}

	stockByFamily := make(map[string]int)
	familyOrder := make([]string, 0, len(families))
	standalones := make([]models.Product, 0, len(products))

	for _, product := range products {
		familyID := FamilyIDOf(product)
		if familyID == "" {
			standalones = append(standalones, product)
			continue
		}
		if _, known := familyByID[familyID]; !known {
			// Prefix matched but no family metadata exists; treat as standalone.
			standalones = append(standalones, product)
			continue
		}
		if _, seen := stockByFamily[familyID]; !seen {
			familyOrder = append(familyOrder, familyID)
		}
		stockByFamily[familyID] += product.Stock
	}

	out := make([]DisplayProduct, 0, len(familyOrder)+len(standalones))
	for _, familyID := range familyOrder {
		family := familyByID[familyID]
		out = append(out, DisplayProduct{
			ID:          family.ID,
			Name:        family.Name,
			Description: family.Description,
			Category:    family.Category,
			Price:       family.BasePrice,
			Stock:       stockByFamily[familyID],
			ImageURL:    family.ImageURL,
			ImageHint:   family.ImageHint,
			IsFamily:    true,
		})
	}
	for _, product := range standalones {
		out = append(out, DisplayProduct{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Category:    product.Category,
			Price:       product.Price,
			Stock:       product.Stock,
			ImageURL:    product.ImageURL,
			ImageHint:   product.ImageHint,
		})
	}
	return out
}

// ResolveFamily returns every variant of the family, falling back to the
// product whose id equals familyID verbatim. Empty when neither exists.
func ResolveFamily(products []models.Product, familyID string) []models.Product {
	if familyID == "" {
		return nil
	}
	variants := make([]models.Product, 0, len(products))
	for _, product := range products {
		if FamilyIDOf(product) == familyID {
			variants = append(variants, product)
		}
	}
	if len(variants) > 0 {
		return variants
	}
	for _, product := range products {
		if product.ID == familyID {
			return []models.Product{product}
		}
	}
	return nil
}

// ResolveFacets parses variant names of the form "<Type> (<Size>)" into the
// distinct types and sizes in first-seen order. A name without a trailing
// parenthesis group yields the whole name as the type and no size.
func ResolveFacets(variants []models.Product) Facets {
	facets := Facets{Types: []string{}, Sizes: []string{}}
	seenTypes := make(map[string]bool)
	seenSizes := make(map[string]bool)

	for _, variant := range variants {
		variantType, size := splitVariantName(variant.Name)
		if variantType != "" && !seenTypes[variantType] {
			seenTypes[variantType] = true
			facets.Types = append(facets.Types, variantType)
		}
		if size != "" && !seenSizes[size] {
			seenSizes[size] = true
			facets.Sizes = append(facets.Sizes, size)
		}
	}
	return facets
}

// SelectVariant finds the variant whose name reconstructs as
// "<type> (<size>)". The second return is false when no variant matches.
func SelectVariant(variants []models.Product, variantType, size string) (*models.Product, bool) {
	wanted := variantType + " (" + size + ")"
	for i := range variants {
		if variants[i].Name == wanted {
			return &variants[i], true
		}
	}
	return nil, false
}

func splitVariantName(name string) (variantType, size string) {
	open := strings.LastIndex(name, "(")
	end := strings.LastIndex(name, ")")
	if open == -1 || end == -1 || end < open {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(name[:open]), name[open+1 : end]
}
