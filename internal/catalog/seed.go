package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

func strPtr(s string) *string { return &s }

func seedFamilies() []models.ProductFamily {
	return []models.ProductFamily{
		{
			ID:          "1",
			Name:        "Quadros Artísticos",
			Description: "Quadros artísticos com mensagens inspiradoras, perfeitos para decorar qualquer ambiente.",
			Category:    "Quadros Artisticos",
			BasePrice:   decimal.NewFromInt(1000),
			ImageURL:    "https://i.postimg.cc/ht51fqKK/2025-10-26-22-26-45.jpg",
			ImageHint:   "quadro artistico",
		},
	}
}

func seedProducts() []models.Product {
	return []models.Product{
		{
			ID:          "1-a4-amor",
			FamilyID:    strPtr("1"),
			Name:        "Quadro Fé, Esperança e Amor (A4)",
			Description: "Decore seu ambiente com mensagens de fé, esperança e amor. Ideal para presentear ou para trazer inspiração ao seu lar.",
			Category:    "Quadros Artisticos",
			Price:       decimal.NewFromInt(1200),
			Stock:       10,
			ImageURL:    "https://i.postimg.cc/9QG7wG7f/2024-10-26-22-26-45.jpg",
			ImageHint:   "quadro artistico",
			SearchTags:  []string{"quadro", "decoração", "fé"},
		},
		{
			ID:          "1-a3-amor",
			FamilyID:    strPtr("1"),
			Name:        "Quadro Fé, Esperança e Amor (A3)",
			Description: "Decore seu ambiente com mensagens de fé, esperança e amor. Ideal para presentear ou para trazer inspiração ao seu lar.",
			Category:    "Quadros Artisticos",
			Price:       decimal.NewFromInt(1800),
			Stock:       5,
			ImageURL:    "https://i.postimg.cc/9QG7wG7f/2024-10-26-22-26-45.jpg",
			ImageHint:   "quadro artistico",
			SearchTags:  []string{"quadro", "decoração", "fé"},
		},
		{
			ID:          "1-a4-familia",
			FamilyID:    strPtr("1"),
			Name:        "Quadro Definição de Família (A4)",
			Description: "Uma bela definição de família para aquecer o coração e decorar sua casa com o que mais importa.",
			Category:    "Quadros Artisticos",
			Price:       decimal.NewFromInt(1200),
			Stock:       12,
			ImageURL:    "https://i.postimg.cc/ht51fqKK/2025-10-26-22-26-45.jpg",
			ImageHint:   "quadro familia",
			SearchTags:  []string{"quadro", "decoração", "família"},
		},
		{
			ID:          "1-a3-familia",
			FamilyID:    strPtr("1"),
			Name:        "Quadro Definição de Família (A3)",
			Description: "Uma bela definição de família para aquecer o coração e decorar sua casa com o que mais importa.",
			Category:    "Quadros Artisticos",
			Price:       decimal.NewFromInt(1800),
			Stock:       7,
			ImageURL:    "https://i.postimg.cc/ht51fqKK/2025-10-26-22-26-45.jpg",
			ImageHint:   "quadro familia",
			SearchTags:  []string{"quadro", "decoração", "família"},
		},
		{
			ID:          "2",
			Name:        "Smart Tag - Rastreador",
			Description: "Nunca mais perca suas chaves, carteira ou mala. Este rastreador inteligente ajuda você a localizar seus pertences com facilidade.",
			Category:    "Smart Tag Rastreador",
			Price:       decimal.NewFromInt(950),
			Stock:       25,
			ImageURL:    "https://http2.mlstatic.com/D_NQ_NP_909774-MLU75727192777_042024-O.webp",
			ImageHint:   "smart tag",
			SearchTags:  []string{"rastreador", "localizador", "smart tag"},
		},
	}
}

// Seed inserts the starter catalog, skipping rows that already exist so it
// stays safe to run on every boot.
func Seed(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db required")
	}
	onConflictNothing := clause.OnConflict{DoNothing: true}

	families := seedFamilies()
	if err := db.WithContext(ctx).Clauses(onConflictNothing).Create(&families).Error; err != nil {
		return fmt.Errorf("seed product families: %w", err)
	}
	products := seedProducts()
	if err := db.WithContext(ctx).Clauses(onConflictNothing).Create(&products).Error; err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	return nil
}
