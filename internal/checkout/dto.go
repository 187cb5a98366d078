package checkout

import (
	"github.com/bazarmoz/bazar-backend/internal/delivery"
)

// QuoteRequest asks for checkout totals against the current cart.
type QuoteRequest struct {
	DeliveryLocation delivery.Location `json:"delivery_location"`
	ApplyDiscount    bool              `json:"apply_discount"`
}

// Quote is a stateless pricing breakdown, recomputed fresh per request.
type Quote struct {
	Subtotal        string `json:"subtotal"`
	DiscountApplied string `json:"discount_applied"`
	DeliveryFee     string `json:"delivery_fee"`
	DistanceKm      string `json:"distance_km"`
	Total           string `json:"total"`
	ItemCount       int    `json:"item_count"`
	// Balance on the account before this quote, not the remainder after it.
	AvailableBefore string `json:"available_discount_before"`
	SellerID        string `json:"seller_id"`
}

// CommitRequest carries the fulfillment contact plus the quote inputs.
type CommitRequest struct {
	Name             string            `json:"name" validate:"required"`
	Email            string            `json:"email" validate:"required,email"`
	Address          string            `json:"address" validate:"required"`
	DeliveryLocation delivery.Location `json:"delivery_location"`
	ApplyDiscount    bool              `json:"apply_discount"`
}
