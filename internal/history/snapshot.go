package history

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a frozen card of a product the user recently viewed.
type Entry struct {
	ProductID string          `json:"productId"`
	FamilyID  string          `json:"familyId,omitempty"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"imageUrl"`
	ViewedAt  time.Time       `json:"viewedAt"`
}

// push prepends entry, dropping any earlier sighting of the same product and
// any other variant of the same family, then truncates to max entries.
func push(entries []Entry, entry Entry, max int) []Entry {
	if max <= 0 {
		return []Entry{}
	}
	kept := make([]Entry, 0, len(entries)+1)
	kept = append(kept, entry)
	for _, existing := range entries {
		if existing.ProductID == entry.ProductID {
			continue
		}
		if entry.FamilyID != "" && existing.FamilyID == entry.FamilyID {
			continue
		}
		kept = append(kept, existing)
	}
	if len(kept) > max {
		kept = kept[:max]
	}
	return kept
}
