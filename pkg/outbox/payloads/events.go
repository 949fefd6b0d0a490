package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// RecurringInvoiceGeneratedEvent is emitted once per invoice created by an invoicing run.
type RecurringInvoiceGeneratedEvent struct {
	ProfileID       uuid.UUID                    `json:"profile_id" validate:"required"`
	CustomerID      uuid.UUID                    `json:"customer_id" validate:"required"`
	InvoiceID       uuid.UUID                    `json:"invoice_id" validate:"required"`
	InvoiceNumber   string                       `json:"invoice_number" validate:"required"`
	IssueDate       types.Date                   `json:"issue_date" validate:"required"`
	DueDate         types.Date                   `json:"due_date" validate:"required"`
	Total           decimal.Decimal              `json:"total"`
	CurrencyCode    string                       `json:"currency_code" validate:"required,len=3"`
	ProfileStatus   enums.RecurringProfileStatus `json:"profile_status" validate:"required"`
	NextInvoiceDate *types.Date                  `json:"next_invoice_date,omitempty"`
}

// RecurringProfileCompletedEvent is emitted when a schedule runs past its end date.
type RecurringProfileCompletedEvent struct {
	ProfileID       uuid.UUID   `json:"profile_id" validate:"required"`
	CustomerID      uuid.UUID   `json:"customer_id" validate:"required"`
	LastInvoiceDate *types.Date `json:"last_invoice_date,omitempty"`
	EndDate         *types.Date `json:"end_date,omitempty"`
}

// RecurringProfileCancelledEvent is emitted when a user cancels an active profile.
type RecurringProfileCancelledEvent struct {
	ProfileID       uuid.UUID   `json:"profile_id" validate:"required"`
	CustomerID      uuid.UUID   `json:"customer_id" validate:"required"`
	LastInvoiceDate *types.Date `json:"last_invoice_date,omitempty"`
	Reason          string      `json:"reason,omitempty" validate:"max=500"`
}
