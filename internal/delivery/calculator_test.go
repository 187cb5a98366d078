package delivery

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazarmoz/bazar-backend/pkg/config"
)

func maputoSeller() config.SellerConfig {
	return config.SellerConfig{
		ID:        "bazar-maputo",
		Latitude:  -25.9653,
		Longitude: 32.5892,
		RatePerKm: "15",
	}
}

func TestQuoteZeroCoordinatesShortCircuit(t *testing.T) {
	calc, err := NewCalculator(maputoSeller())
	require.NoError(t, err)

	result := calc.Quote(Location{Latitude: 0, Longitude: 0})
	assert.True(t, result.DistanceKm.IsZero())
	assert.True(t, result.DeliveryFee.IsZero())
	assert.Equal(t, Location{}, result.SellerLocation)
}

func TestQuoteSameLocationIsFree(t *testing.T) {
	calc, err := NewCalculator(maputoSeller())
	require.NoError(t, err)

	result := calc.Quote(Location{Latitude: -25.9653, Longitude: 32.5892})
	assert.True(t, result.DistanceKm.IsZero(), "distance was %s", result.DistanceKm)
	assert.True(t, result.DeliveryFee.IsZero(), "fee was %s", result.DeliveryFee)
	assert.Equal(t, Location{Latitude: -25.9653, Longitude: 32.5892}, result.SellerLocation)
}

func TestQuoteKnownDistance(t *testing.T) {
	calc, err := NewCalculator(maputoSeller())
	require.NoError(t, err)

	// Matola sits roughly 12km west of central Maputo.
	result := calc.Quote(Location{Latitude: -25.9622, Longitude: 32.4589})

	assert.True(t, result.DistanceKm.GreaterThan(decimal.NewFromInt(10)))
	assert.True(t, result.DistanceKm.LessThan(decimal.NewFromInt(16)))

	// The fee is rate * unrounded distance, so allow a cent of drift against
	// the rounded distance.
	approx := result.DistanceKm.Mul(decimal.NewFromInt(15))
	drift := result.DeliveryFee.Sub(approx).Abs()
	assert.True(t, drift.LessThanOrEqual(decimal.NewFromFloat(0.15)), "drift was %s", drift)
	assert.Equal(t, int32(-2), result.DistanceKm.Exponent())
}

func TestQuoteIsIdempotent(t *testing.T) {
	calc, err := NewCalculator(maputoSeller())
	require.NoError(t, err)

	buyer := Location{Latitude: -24.5, Longitude: 33.1}
	first := calc.Quote(buyer)
	second := calc.Quote(buyer)
	assert.True(t, first.DistanceKm.Equal(second.DistanceKm))
	assert.True(t, first.DeliveryFee.Equal(second.DeliveryFee))
}

func TestNewCalculatorRejectsBadRate(t *testing.T) {
	cfg := maputoSeller()
	cfg.RatePerKm = "not-a-number"
	_, err := NewCalculator(cfg)
	require.Error(t, err)

	cfg.RatePerKm = "-3"
	_, err = NewCalculator(cfg)
	require.Error(t, err)
}
