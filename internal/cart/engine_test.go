package cart

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazarmoz/bazar-backend/pkg/db/models"
)

func testProduct(id string, price int64, stock int) models.Product {
	return models.Product{
		ID:    id,
		Name:  "Produto " + id,
		Price: decimal.NewFromInt(price),
		Stock: stock,
	}
}

func TestAddSucceedsWithinStock(t *testing.T) {
	cart := NewCart()
	product := testProduct("2", 950, 25)

	require.True(t, cart.Add(product, 2))
	assert.Equal(t, 2, cart.TotalItems())
	assert.True(t, cart.TotalPrice().Equal(decimal.NewFromInt(1900)))

	// Merging into the existing line.
	require.True(t, cart.Add(product, 3))
	assert.Equal(t, 5, cart.TotalItems())
	assert.True(t, cart.TotalPrice().Equal(decimal.NewFromInt(4750)))
	assert.Len(t, cart.Lines, 1)
}

func TestAddFailsWhenStockExceeded(t *testing.T) {
	cart := NewCart()
	product := testProduct("2", 950, 3)

	require.True(t, cart.Add(product, 3))
	before := cart.TotalItems()

	assert.False(t, cart.Add(product, 1))
	assert.Equal(t, before, cart.TotalItems(), "failed add must not mutate the cart")

	assert.False(t, cart.Add(testProduct("9", 10, 0), 1))
	assert.False(t, cart.Add(product, 0))
	assert.False(t, cart.Add(product, -2))
}

func TestAddIncreasesAggregatesExactly(t *testing.T) {
	cart := NewCart()
	product := testProduct("1-a4-amor", 1200, 10)

	itemsBefore := cart.TotalItems()
	priceBefore := cart.TotalPrice()
	require.True(t, cart.Add(product, 4))

	assert.Equal(t, itemsBefore+4, cart.TotalItems())
	expected := priceBefore.Add(product.Price.Mul(decimal.NewFromInt(4)))
	assert.True(t, cart.TotalPrice().Equal(expected))
}

func TestRemoveThenAddRoundTrip(t *testing.T) {
	cart := NewCart()
	quadro := testProduct("1-a4-amor", 1200, 10)
	tag := testProduct("2", 950, 25)
	require.True(t, cart.Add(quadro, 2))
	require.True(t, cart.Add(tag, 1))

	itemsBefore := cart.TotalItems()
	priceBefore := cart.TotalPrice()

	cart.Remove(quadro.ID)
	require.True(t, cart.Add(quadro, 2))

	assert.Equal(t, itemsBefore, cart.TotalItems())
	assert.True(t, cart.TotalPrice().Equal(priceBefore))
}

func TestRemoveMissingIsNoOp(t *testing.T) {
	cart := NewCart()
	require.True(t, cart.Add(testProduct("2", 950, 25), 1))

	cart.Remove("does-not-exist")
	assert.Equal(t, 1, cart.TotalItems())
}

func TestClearEmptiesCart(t *testing.T) {
	cart := NewCart()
	require.True(t, cart.Add(testProduct("2", 950, 25), 2))
	require.False(t, cart.IsEmpty())

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0, cart.TotalItems())
	assert.True(t, cart.TotalPrice().IsZero())
}

func TestCartSnapshotRoundTrip(t *testing.T) {
	cart := NewCart()
	require.True(t, cart.Add(testProduct("1-a3-familia", 1800, 7), 2))

	payload, err := json.Marshal(cart)
	require.NoError(t, err)

	var restored Cart
	require.NoError(t, json.Unmarshal(payload, &restored))
	assert.Equal(t, cart.TotalItems(), restored.TotalItems())
	assert.True(t, cart.TotalPrice().Equal(restored.TotalPrice()))
}
