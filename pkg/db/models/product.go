package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a single sellable catalog record. Variants of a family
// carry the same FamilyID; legacy rows encode the family in the id prefix
// (e.g. "1-a4-amor") and are resolved by the catalog package's fallback.
type Product struct {
	ID          string          `gorm:"column:id;primaryKey"`
	FamilyID    *string         `gorm:"column:family_id;index"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null"`
	Category    string          `gorm:"column:category;not null;index"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	ImageURL    string          `gorm:"column:image_url;not null"`
	ImageHint   string          `gorm:"column:image_hint"`
	SearchTags  pq.StringArray  `gorm:"column:search_tags;type:text[];default:ARRAY[]::text[]"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductFamily holds the display metadata for a family's representative
// card. The representative itself is synthesized at read time and never
// stored alongside the variants.
type ProductFamily struct {
	ID          string          `gorm:"column:id;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null"`
	Category    string          `gorm:"column:category;not null"`
	BasePrice   decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null"`
	ImageURL    string          `gorm:"column:image_url;not null"`
	ImageHint   string          `gorm:"column:image_hint"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
