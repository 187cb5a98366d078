package controllers

import (
	"net/http"

	"github.com/bazarmoz/bazar-backend/api/responses"
	"github.com/bazarmoz/bazar-backend/api/validators"
	deliverysvc "github.com/bazarmoz/bazar-backend/internal/delivery"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
)

type deliveryQuoteRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeliveryQuote prices delivery to a coordinate pair. Public so the
// storefront can show an estimate before login.
func DeliveryQuote(calc *deliverysvc.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery calculator unavailable"))
			return
		}

		var payload deliveryQuoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := calc.Quote(deliverysvc.Location{
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
		})

		responses.WriteSuccess(w, result)
	}
}
