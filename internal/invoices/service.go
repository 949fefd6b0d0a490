package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	dbpkg "github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// Triggers recorded on emitted events and metrics.
const (
	TriggerCron = "cron"
	TriggerAPI  = "api"
)

var (
	// ErrNotDue marks a generate request made before the next invoice date.
	ErrNotDue = errors.New("recurring profile not due")
	// ErrScheduleExhausted marks an active profile with no further invoice date.
	ErrScheduleExhausted = errors.New("recurring profile schedule exhausted")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type billingMetrics interface {
	IncGenerated(frequency, trigger string)
	IncCompleted()
	IncFailure(reason string)
}

// Service generates invoices from recurring profiles.
type Service interface {
	Generate(ctx context.Context, profileID uuid.UUID, today time.Time, trigger string) (*Generated, error)
	CloseExhausted(ctx context.Context, profileID uuid.UUID, trigger string) (bool, error)
	ListForProfile(ctx context.Context, profileID uuid.UUID, params pkgpagination.Params) (*pkgpagination.Page[InvoiceView], error)
}

// Deps wires the invoice service.
type Deps struct {
	Invoices       *Repository
	Profiles       *profiles.Repository
	Tx             txRunner
	Outbox         outboxPublisher
	Metrics        billingMetrics
	Currency       string
	InvoiceDueDays int
	Now            func() time.Time
}

type service struct {
	invoices *Repository
	profiles *profiles.Repository
	tx       txRunner
	outbox   outboxPublisher
	metrics  billingMetrics
	currency string
	dueDays  int
	now      func() time.Time
}

// NewService builds the invoice service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Invoices == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
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
	if deps.InvoiceDueDays < 0 {
		return nil, fmt.Errorf("invoice due days must be zero or greater")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		invoices: deps.Invoices,
		profiles: deps.Profiles,
		tx:       deps.Tx,
		outbox:   deps.Outbox,
		metrics:  deps.Metrics,
		currency: deps.Currency,
		dueDays:  deps.InvoiceDueDays,
		now:      now,
	}, nil
}

// Generate bills the currently due period of a profile. The invoice is issued
// on the due date itself, so a late run never shifts the schedule.
func (s *service) Generate(ctx context.Context, profileID uuid.UUID, today time.Time, trigger string) (*Generated, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}

	var (
		result    *Generated
		frequency enums.RecurringFrequency
		completed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profiles.WithTx(tx)
		row, err := profileRepo.FindByIDForUpdate(ctx, profileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "recurring profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recurring profile")
		}
		frequency = row.Frequency

		core := profiles.ToCore(row)
		if core.Status.IsTerminal() {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, recurring.ErrInvalidTransition,
				fmt.Sprintf("profile is %s", core.Status))
		}
		due, next, err := core.IsDue(today)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute next invoice date")
		}
		if next == nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrScheduleExhausted, "profile has no further invoice date")
		}
		if !due {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotDue, "profile not due").WithDetails(map[string]any{
				"next_invoice_date": types.NewDate(*next).String(),
			})
		}

		issueDate := *next
		after, err := recurring.Transition(core, recurring.EventInvoiceGenerated, issueDate)
		if err != nil {
			return err
		}

		invoice := s.buildInvoice(row, core, issueDate)
		if err := s.invoices.WithTx(tx).Create(ctx, &invoice); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "invoice already generated for this period")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}

		now := s.now().UTC()
		profiles.Apply(row, after)
		completed = after.Status == enums.RecurringProfileStatusCompleted
		if completed {
			row.CompletedAt = &now
		}
		if err := profileRepo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update recurring profile")
		}

		nextDue, err := after.NextDueDate()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute next invoice date")
		}
		producer := &outbox.Producer{Service: "billing", Trigger: trigger}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRecurringInvoiceGenerated,
			AggregateType: enums.AggregateRecurringProfile,
			AggregateID:   row.ID,
			Producer:      producer,
			OccurredAt:    now,
			Data: payloads.RecurringInvoiceGeneratedEvent{
				ProfileID:       row.ID,
				CustomerID:      row.CustomerID,
				InvoiceID:       invoice.ID,
				InvoiceNumber:   invoice.InvoiceNumber,
				IssueDate:       types.NewDate(invoice.IssueDate),
				DueDate:         types.NewDate(invoice.DueDate),
				Total:           invoice.Total,
				CurrencyCode:    invoice.CurrencyCode,
				ProfileStatus:   after.Status,
				NextInvoiceDate: types.DatePtr(nextDue),
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit invoice generated event")
		}
		if completed {
			if err := s.emitCompleted(ctx, tx, row, producer, now); err != nil {
				return err
			}
		}

		result = &Generated{
			Invoice:         NewView(invoice),
			ProfileStatus:   after.Status,
			NextInvoiceDate: types.DatePtr(nextDue),
		}
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncGenerated(frequency.String(), trigger)
		if completed {
			s.metrics.IncCompleted()
		}
	}
	return result, nil
}

// CloseExhausted completes an active profile whose schedule has no further
// date. It reports false when the profile is no longer active.
func (s *service) CloseExhausted(ctx context.Context, profileID uuid.UUID, trigger string) (bool, error) {
	closed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profiles.WithTx(tx)
		row, err := profileRepo.FindByIDForUpdate(ctx, profileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recurring profile")
		}
		if row.Status != enums.RecurringProfileStatusActive {
			return nil
		}

		now := s.now().UTC()
		after, err := recurring.Transition(profiles.ToCore(row), recurring.EventScheduleExhausted, now)
		if err != nil {
			return err
		}
		profiles.Apply(row, after)
		row.CompletedAt = &now
		if err := profileRepo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete recurring profile")
		}
		if err := s.emitCompleted(ctx, tx, row, &outbox.Producer{Service: "billing", Trigger: trigger}, now); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if closed && s.metrics != nil {
		s.metrics.IncCompleted()
	}
	return closed, nil
}

func (s *service) ListForProfile(ctx context.Context, profileID uuid.UUID, params pkgpagination.Params) (*pkgpagination.Page[InvoiceView], error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	if _, err := s.profiles.FindByID(ctx, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recurring profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recurring profile")
	}

	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.invoices.ListByProfile(ctx, profileID, pkgpagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	page := pkgpagination.Paginate(rows, params.Limit, func(inv models.Invoice) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: inv.IssueDate, ID: inv.ID}
	})
	views := pkgpagination.MapPage(page, NewView)
	return &views, nil
}

func (s *service) buildInvoice(row *models.RecurringProfile, core recurring.Profile, issueDate time.Time) models.Invoice {
	amounts := recurring.Amounts(core.LineItem)
	id := uuid.New()
	profileID := row.ID
	return models.Invoice{
		ID:                 id,
		InvoiceNumber:      Number(issueDate, id),
		RecurringProfileID: &profileID,
		CustomerID:         row.CustomerID,
		ItemID:             row.ItemID,
		Status:             enums.InvoiceStatusIssued,
		IssueDate:          issueDate,
		DueDate:            issueDate.AddDate(0, 0, s.dueDays),
		Rate:               row.Rate,
		Quantity:           row.Quantity,
		TaxPercent:         row.TaxPercent,
		Subtotal:           amounts.Subtotal,
		TaxAmount:          amounts.Tax,
		Total:              amounts.Total,
		CurrencyCode:       s.currency,
	}
}

func (s *service) emitCompleted(ctx context.Context, tx *gorm.DB, row *models.RecurringProfile, producer *outbox.Producer, at time.Time) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRecurringProfileCompleted,
		AggregateType: enums.AggregateRecurringProfile,
		AggregateID:   row.ID,
		Producer:      producer,
		OccurredAt:    at,
		Data: payloads.RecurringProfileCompletedEvent{
			ProfileID:       row.ID,
			CustomerID:      row.CustomerID,
			LastInvoiceDate: types.DatePtr(row.LastInvoiceDate),
			EndDate:         types.DatePtr(row.EndDate),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit profile completed event")
	}
	return nil
}

func (s *service) recordFailure(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, ErrNotDue):
	case errors.Is(err, ErrScheduleExhausted), errors.Is(err, recurring.ErrInvalidTransition):
		s.metrics.IncFailure("state_conflict")
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.metrics.IncFailure("not_found")
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		s.metrics.IncFailure("duplicate")
	default:
		s.metrics.IncFailure("dependency")
	}
}
