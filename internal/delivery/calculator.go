package delivery

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bazarmoz/bazar-backend/pkg/config"
)

const earthRadiusKm = 6371.0

// Location is a latitude/longitude pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FeeResult is the delivery quote computed for one checkout session.
type FeeResult struct {
	DistanceKm     decimal.Decimal `json:"distanceKm"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee"`
	SellerLocation Location        `json:"sellerLocation"`
}

// Calculator prices delivery by great-circle distance from the seller.
type Calculator struct {
	seller    Location
	ratePerKm decimal.Decimal
}

// NewCalculator builds a calculator from the configured seller record.
func NewCalculator(cfg config.SellerConfig) (*Calculator, error) {
	rate, err := decimal.NewFromString(cfg.RatePerKm)
	if err != nil {
		return nil, fmt.Errorf("invalid delivery rate %q: %w", cfg.RatePerKm, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("delivery rate must not be negative")
	}
	return &Calculator{
		seller:    Location{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
		ratePerKm: rate,
	}, nil
}

// Quote computes the fee for the buyer's coordinates. Buyer coordinates of
// exactly (0,0) mean "no location on file" and short-circuit to a zero quote.
func (c *Calculator) Quote(buyer Location) FeeResult {
	if buyer.Latitude == 0 && buyer.Longitude == 0 {
		return FeeResult{
			DistanceKm:  decimal.Zero.Round(2),
			DeliveryFee: decimal.Zero.Round(2),
		}
	}

	distanceKm := haversineKm(buyer, c.seller)
	distance := decimal.NewFromFloat(distanceKm)
	fee := distance.Mul(c.ratePerKm)

	return FeeResult{
		DistanceKm:     distance.Round(2),
		DeliveryFee:    fee.Round(2),
		SellerLocation: c.seller,
	}
}

func haversineKm(a, b Location) float64 {
	lat1 := degToRad(a.Latitude)
	lat2 := degToRad(b.Latitude)
	dLat := degToRad(b.Latitude - a.Latitude)
	dLon := degToRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	central := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * central
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
