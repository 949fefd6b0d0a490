package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/api/responses"
	"github.com/angelmondragon/liftbooks-backend/api/validators"
	"github.com/angelmondragon/liftbooks-backend/internal/invoices"
	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

type profileItemRequest struct {
	ItemID     string              `json:"item_id" validate:"omitempty,uuid"`
	Rate       decimal.NullDecimal `json:"rate"`
	Quantity   *int                `json:"qty"`
	TaxPercent decimal.NullDecimal `json:"tax_percent"`
}

// profileRequest leaves required-field checks to the recurring core so a
// single response lists every failing field.
type profileRequest struct {
	CustomerID  string             `json:"customer_id" validate:"omitempty,uuid"`
	ProfileName string             `json:"profile_name" validate:"max=200"`
	Frequency   string             `json:"frequency"`
	StartDate   types.Date         `json:"start_date"`
	EndDate     *types.Date        `json:"end_date"`
	Item        profileItemRequest `json:"item"`
	Notes       *string            `json:"notes" validate:"omitempty,max=2000"`
}

type updateProfileRequest struct {
	profileRequest
	Status *string `json:"status" validate:"omitempty,oneof=active completed cancelled"`
}

type cancelProfileRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (req profileRequest) input() profiles.ProfileInput {
	in := profiles.ProfileInput{
		CustomerID:  parseOptionalUUID(req.CustomerID),
		ProfileName: req.ProfileName,
		Frequency:   enums.RecurringFrequency(strings.TrimSpace(req.Frequency)),
		StartDate:   req.StartDate.Time,
		ItemID:      parseOptionalUUID(req.Item.ItemID),
		Rate:        req.Item.Rate,
		Quantity:    1,
		Notes:       req.Notes,
	}
	if req.EndDate != nil && !req.EndDate.IsZero() {
		in.EndDate = req.EndDate.Ptr()
	}
	if req.Item.Quantity != nil {
		in.Quantity = *req.Item.Quantity
	}
	if req.Item.TaxPercent.Valid {
		in.TaxPercent = req.Item.TaxPercent.Decimal
	}
	return in
}

// parseOptionalUUID maps blanks to uuid.Nil; format is already checked by the validator.
func parseOptionalUUID(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RecurringProfileList filters profiles by search term, status and customer.
func RecurringProfileList(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		customerID, err := validators.ParseOptionalUUIDQuery(r, "customer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list := profiles.ListParams{
			Search:     validators.SearchQuery(r, "search", maxSearchLength),
			CustomerID: customerID,
			Params:     params,
		}
		if raw := r.URL.Query().Get("status"); strings.TrimSpace(raw) != "" {
			status, err := enums.ParseRecurringProfileStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			list.Status = &status
		}

		page, err := svc.List(ctx, list)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func RecurringProfileCreate(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body profileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Create(ctx, body.input())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithProfileID(ctx, view.ID.String()), "recurring profile created")
		}
		responses.WriteCreated(w, view)
	}
}

func RecurringProfileDetail(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// RecurringProfileUpdate replaces the editable fields of an active profile.
func RecurringProfileUpdate(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		in := profiles.UpdateInput{ProfileInput: body.input()}
		if body.Status != nil {
			status := enums.RecurringProfileStatus(*body.Status)
			in.Status = &status
		}

		view, err := svc.Update(ctx, id, in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func RecurringProfileCancel(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body cancelProfileRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Cancel(ctx, id, body.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithProfileID(ctx, id.String()), "recurring profile cancelled")
		}
		responses.WriteSuccess(w, view)
	}
}

func RecurringProfileDelete(svc profiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// RecurringProfileInvoices lists invoices generated for one profile, newest first.
func RecurringProfileInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListForProfile(ctx, id, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// RecurringProfileGenerate bills the period currently due for one profile.
func RecurringProfileGenerate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseUUIDParam(r, "profileId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		generated, err := svc.Generate(ctx, id, types.TruncateDay(time.Now().UTC()), invoices.TriggerAPI)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(logg.WithProfileID(ctx, id.String()), map[string]any{
				"invoice_number": generated.Invoice.InvoiceNumber,
				"profile_status": generated.ProfileStatus,
			}), "invoice generated on demand")
		}
		responses.WriteCreated(w, generated)
	}
}
