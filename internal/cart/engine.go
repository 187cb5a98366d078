package cart

import (
	"github.com/shopspring/decimal"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

// Line is one cart entry: a frozen product snapshot plus a quantity.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	ImageURL  string          `json:"imageUrl"`
	Quantity  int             `json:"quantity"`
}

// Cart is the quantity ledger for one user. It holds no ambient state; the
// caller owns the instance and persists it through the snapshot store.
type Cart struct {
	Lines []Line `json:"lines"`
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{Lines: []Line{}}
}

// Add merges quantity into the product's line. It succeeds only when the
// product's stock covers the new total; on failure the cart is unchanged.
func (c *Cart) Add(product models.Product, quantity int) bool {
	if quantity <= 0 {
		return false
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == product.ID {
			newTotal := c.Lines[i].Quantity + quantity
			if product.Stock < newTotal {
				return false
			}
			c.Lines[i].Quantity = newTotal
			c.Lines[i].Stock = product.Stock
			return true
		}
	}
	if product.Stock < quantity {
		return false
	}
	c.Lines = append(c.Lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		ImageURL:  product.ImageURL,
		Quantity:  quantity,
	})
	return true
}

// Remove deletes the product's line if present. Removing an absent product
// is a no-op.
func (c *Cart) Remove(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = []Line{}
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalPrice recomputes the subtotal from the current lines.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// TotalItems recomputes the unit count from the current lines.
func (c *Cart) TotalItems() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}
