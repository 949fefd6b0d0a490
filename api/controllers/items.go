package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/api/responses"
	"github.com/angelmondragon/liftbooks-backend/api/validators"
	"github.com/angelmondragon/liftbooks-backend/internal/items"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

type createItemRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	SKU               *string         `json:"sku" validate:"omitempty,max=64"`
	Description       *string         `json:"description" validate:"omitempty,max=2000"`
	Unit              string          `json:"unit" validate:"omitempty,max=16"`
	DefaultRate       decimal.Decimal `json:"default_rate"`
	DefaultTaxPercent decimal.Decimal `json:"default_tax_percent"`
}

type itemResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	SKU               *string         `json:"sku,omitempty"`
	Description       *string         `json:"description,omitempty"`
	Unit              string          `json:"unit"`
	DefaultRate       decimal.Decimal `json:"default_rate"`
	DefaultTaxPercent decimal.Decimal `json:"default_tax_percent"`
	CreatedAt         time.Time       `json:"created_at"`
}

func newItemResponse(m *models.Item) itemResponse {
	return itemResponse{
		ID:                m.ID,
		Name:              m.Name,
		SKU:               m.SKU,
		Description:       m.Description,
		Unit:              m.Unit,
		DefaultRate:       m.DefaultRate,
		DefaultTaxPercent: m.DefaultTaxPercent,
		CreatedAt:         m.CreatedAt,
	}
}

// ItemList returns catalog items matching the search term by name or SKU.
func ItemList(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		found, err := svc.Search(ctx, validators.SearchQuery(r, "search", maxSearchLength), limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]itemResponse, 0, len(found))
		for i := range found {
			out = append(out, newItemResponse(&found[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func ItemCreate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		item, err := svc.Create(ctx, items.CreateInput{
			Name:              body.Name,
			SKU:               body.SKU,
			Description:       body.Description,
			Unit:              body.Unit,
			DefaultRate:       body.DefaultRate,
			DefaultTaxPercent: body.DefaultTaxPercent,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, newItemResponse(item))
	}
}
