package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent signals a committed checkout.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	UserID          uuid.UUID `json:"user_id"`
	SellerID        string    `json:"seller_id"`
	Subtotal        string    `json:"subtotal"`
	DiscountApplied string    `json:"discount_applied"`
	DeliveryFee     string    `json:"delivery_fee"`
	TotalAmount     string    `json:"total_amount"`
	ItemCount       int       `json:"item_count"`
	OrderDate       time.Time `json:"order_date"`
}

// ReferralCreditedEvent is emitted when a referrer earns a signup bonus.
type ReferralCreditedEvent struct {
	ReferrerID    uuid.UUID `json:"referrer_id"`
	ReferredID    uuid.UUID `json:"referred_id"`
	ReferralCode  string    `json:"referral_code"`
	BonusAmount   string    `json:"bonus_amount"`
	ReferralCount int       `json:"referral_count"`
}
