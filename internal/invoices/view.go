package invoices

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// InvoiceView is the API representation of a generated invoice.
type InvoiceView struct {
	ID                 uuid.UUID           `json:"id"`
	InvoiceNumber      string              `json:"invoice_number"`
	RecurringProfileID *uuid.UUID          `json:"recurring_profile_id,omitempty"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	ItemID             uuid.UUID           `json:"item_id"`
	Status             enums.InvoiceStatus `json:"status"`
	IssueDate          types.Date          `json:"issue_date"`
	DueDate            types.Date          `json:"due_date"`
	Rate               string              `json:"rate"`
	Quantity           int                 `json:"qty"`
	TaxPercent         string              `json:"tax_percent"`
	Subtotal           string              `json:"subtotal"`
	TaxAmount          string              `json:"tax_amount"`
	Total              string              `json:"total"`
	AmountDisplay      string              `json:"amount_display"`
}

// NewView renders an invoice row.
func NewView(m models.Invoice) InvoiceView {
	return InvoiceView{
		ID:                 m.ID,
		InvoiceNumber:      m.InvoiceNumber,
		RecurringProfileID: m.RecurringProfileID,
		CustomerID:         m.CustomerID,
		ItemID:             m.ItemID,
		Status:             m.Status,
		IssueDate:          types.NewDate(m.IssueDate),
		DueDate:            types.NewDate(m.DueDate),
		Rate:               m.Rate.StringFixed(2),
		Quantity:           m.Quantity,
		TaxPercent:         m.TaxPercent.StringFixed(2),
		Subtotal:           m.Subtotal.StringFixed(2),
		TaxAmount:          m.TaxAmount.StringFixed(2),
		Total:              m.Total.StringFixed(2),
		AmountDisplay:      recurring.FormatAmount(m.CurrencyCode, m.Total),
	}
}

// Generated is the outcome of billing one profile period.
type Generated struct {
	Invoice         InvoiceView                  `json:"invoice"`
	ProfileStatus   enums.RecurringProfileStatus `json:"profile_status"`
	NextInvoiceDate *types.Date                  `json:"next_invoice_date"`
}
