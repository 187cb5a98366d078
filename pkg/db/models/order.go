package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is immutable once created: totals and line items are a frozen copy
// taken at checkout commit, independent of later catalog changes.
type Order struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Name            string          `gorm:"column:name;not null"`
	Email           string          `gorm:"column:email;not null"`
	Address         string          `gorm:"column:address;not null"`
	SellerID        string          `gorm:"column:seller_id;not null"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountApplied decimal.Decimal `gorm:"column:discount_applied;type:numeric(12,2);not null;default:0"`
	DeliveryFee     decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	OrderDate       time.Time       `gorm:"column:order_date;not null"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderItem is one frozen line of an order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   string          `gorm:"column:product_id;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
}
