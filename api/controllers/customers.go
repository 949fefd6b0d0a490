package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/liftbooks-backend/api/responses"
	"github.com/angelmondragon/liftbooks-backend/api/validators"
	"github.com/angelmondragon/liftbooks-backend/internal/customers"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

const maxSearchLength = 100

type createCustomerRequest struct {
	Reference   string  `json:"reference" validate:"required,max=64"`
	BillingName string  `json:"billing_name" validate:"required,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	GSTIN       *string `json:"gstin" validate:"omitempty,len=15"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
}

type customerResponse struct {
	ID          uuid.UUID `json:"id"`
	Reference   string    `json:"reference"`
	BillingName string    `json:"billing_name"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	GSTIN       *string   `json:"gstin,omitempty"`
	Address     *string   `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCustomerResponse(m *models.Customer) customerResponse {
	return customerResponse{
		ID:          m.ID,
		Reference:   m.Reference,
		BillingName: m.BillingName,
		Email:       m.Email,
		Phone:       m.Phone,
		GSTIN:       m.GSTIN,
		Address:     m.Address,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// CustomerList searches customers by reference or billing name.
func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.List(ctx, customers.ListParams{
			Search: validators.SearchQuery(r, "search", maxSearchLength),
			Params: params,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, pagination.MapPage(*page, func(c models.Customer) customerResponse {
			return newCustomerResponse(&c)
		}))
	}
}

func CustomerCreate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body createCustomerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := svc.Create(ctx, customers.CreateInput{
			Reference:   strings.TrimSpace(body.Reference),
			BillingName: strings.TrimSpace(body.BillingName),
			Email:       body.Email,
			Phone:       body.Phone,
			GSTIN:       body.GSTIN,
			Address:     body.Address,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, newCustomerResponse(customer))
	}
}

func CustomerDetail(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCustomerResponse(customer))
	}
}
