package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type customerLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type itemLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// Service manages recurring invoice profiles.
type Service interface {
	Create(ctx context.Context, input ProfileInput) (*ProfileView, error)
	Get(ctx context.Context, id uuid.UUID) (*ProfileView, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProfileView, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*ProfileView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params ListParams) (*pkgpagination.Page[ProfileView], error)
}

// ProfileInput carries the editable fields of a profile.
type ProfileInput struct {
	CustomerID  uuid.UUID
	ProfileName string
	Frequency   enums.RecurringFrequency
	StartDate   time.Time
	EndDate     *time.Time
	ItemID      uuid.UUID
	Rate        decimal.NullDecimal
	Quantity    int
	TaxPercent  decimal.Decimal
	Notes       *string
}

// UpdateInput replaces the editable fields of an active profile. Status may
// only be set to its current value or to cancelled.
type UpdateInput struct {
	ProfileInput
	Status *enums.RecurringProfileStatus
}

// ListParams filters the profile list.
type ListParams struct {
	Search     string
	Status     *enums.RecurringProfileStatus
	CustomerID *uuid.UUID
	pkgpagination.Params
}

// Deps wires the profile service.
type Deps struct {
	Repo      *Repository
	Customers customerLookup
	Items     itemLookup
	Tx        txRunner
	Outbox    outboxPublisher
	Currency  string
	Now       func() time.Time
}

type service struct {
	repo      *Repository
	customers customerLookup
	items     itemLookup
	tx        txRunner
	outbox    outboxPublisher
	currency  string
	now       func() time.Time
}

// NewService builds the profile service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("customer lookup required")
	}
	if deps.Items == nil {
		return nil, fmt.Errorf("item lookup required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if strings.TrimSpace(deps.Currency) == "" {
		return nil, fmt.Errorf("currency required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      deps.Repo,
		customers: deps.Customers,
		items:     deps.Items,
		tx:        deps.Tx,
		outbox:    deps.Outbox,
		currency:  deps.Currency,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, input ProfileInput) (*ProfileView, error) {
	core := input.core()
	core.Status = enums.RecurringProfileStatusActive
	if err := recurring.Validate(core); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, core); err != nil {
		return nil, err
	}

	row := &models.RecurringProfile{Notes: trimmed(input.Notes)}
	Apply(row, core)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create recurring profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, row.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProfileView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load recurring profile")
	}
	return s.view(row)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProfileView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	if input.Status != nil {
		switch *input.Status {
		case enums.RecurringProfileStatusCancelled:
			return s.Cancel(ctx, id, "")
		case enums.RecurringProfileStatusActive:
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid profile").WithDetails(recurring.FieldErrors{
				"status": fmt.Sprintf("status cannot be changed to %q", *input.Status),
			})
		}
	}

	core := input.core()
	if core.CustomerID != uuid.Nil && core.LineItem.ItemID != uuid.Nil {
		if err := s.checkReferences(ctx, core); err != nil {
			return nil, err
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "load recurring profile")
		}
		if row.Status.IsTerminal() {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, recurring.ErrInvalidTransition,
				fmt.Sprintf("profile is %s and can no longer be edited", row.Status))
		}

		core.ID = row.ID
		core.Status = row.Status
		core.LastInvoiceDate = row.LastInvoiceDate
		if err := recurring.Validate(core); err != nil {
			return err
		}

		Apply(row, core)
		row.Notes = trimmed(input.Notes)
		if err := repo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update recurring profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*ProfileView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "load recurring profile")
		}

		now := s.now().UTC()
		next, err := recurring.Transition(ToCore(row), recurring.EventCancel, now)
		if err != nil {
			return err
		}
		Apply(row, next)
		row.CancelledAt = &now
		if err := repo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel recurring profile")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRecurringProfileCancelled,
			AggregateType: enums.AggregateRecurringProfile,
			AggregateID:   row.ID,
			Producer:      &outbox.Producer{Service: "api", Trigger: "cancel"},
			OccurredAt:    now,
			Data: payloads.RecurringProfileCancelledEvent{
				ProfileID:       row.ID,
				CustomerID:      row.CustomerID,
				LastInvoiceDate: types.DatePtr(row.LastInvoiceDate),
				Reason:          strings.TrimSpace(reason),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete recurring profile")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "recurring profile not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pkgpagination.Page[ProfileView], error) {
	query := listQuery{
		search:     params.Search,
		status:     params.Status,
		customerID: params.CustomerID,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported status %q", *params.Status))
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recurring profiles")
	}

	found := pkgpagination.Paginate(rows, params.Limit, func(p models.RecurringProfile) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	page := &pkgpagination.Page[ProfileView]{Items: make([]ProfileView, 0, len(found.Items)), NextCursor: found.NextCursor}
	for i := range found.Items {
		view, err := NewView(&found.Items[i], s.currency)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, view)
	}
	return page, nil
}

// checkReferences reports unknown customers or items as field errors.
func (s *service) checkReferences(ctx context.Context, p recurring.Profile) error {
	fields := recurring.FieldErrors{}
	if _, err := s.customers.FindByID(ctx, p.CustomerID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer")
		}
		fields[recurring.FieldCustomerID] = "customer not found"
	}
	if _, err := s.items.FindByID(ctx, p.LineItem.ItemID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup item")
		}
		fields[recurring.FieldItemID] = "item not found"
	}
	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, recurring.ErrValidation, "invalid recurring profile").WithDetails(fields)
}

func (s *service) view(row *models.RecurringProfile) (*ProfileView, error) {
	view, err := NewView(row, s.currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render recurring profile")
	}
	return &view, nil
}

func (in ProfileInput) core() recurring.Profile {
	p := recurring.Profile{
		CustomerID:  in.CustomerID,
		ProfileName: strings.TrimSpace(in.ProfileName),
		Frequency:   in.Frequency,
		LineItem: recurring.LineItem{
			ItemID:     in.ItemID,
			Rate:       in.Rate,
			Quantity:   in.Quantity,
			TaxPercent: in.TaxPercent,
		},
	}
	if !in.StartDate.IsZero() {
		p.StartDate = types.TruncateDay(in.StartDate)
	}
	if in.EndDate != nil {
		end := types.TruncateDay(*in.EndDate)
		p.EndDate = &end
	}
	return p
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "recurring profile not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
