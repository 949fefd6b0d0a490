package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

// ItemView is the billable line of a profile.
type ItemView struct {
	ItemID     uuid.UUID `json:"item_id"`
	ItemName   string    `json:"item_name,omitempty"`
	Rate       string    `json:"rate"`
	Quantity   int       `json:"qty"`
	TaxPercent string    `json:"tax_percent"`
}

// ProfileView is the API representation of a recurring profile with its
// derived schedule fields.
type ProfileView struct {
	ID              uuid.UUID                    `json:"id"`
	CustomerID      uuid.UUID                    `json:"customer_id"`
	CustomerName    string                       `json:"customer_name,omitempty"`
	ProfileName     string                       `json:"profile_name"`
	Frequency       enums.RecurringFrequency     `json:"frequency"`
	StartDate       types.Date                   `json:"start_date"`
	EndDate         *types.Date                  `json:"end_date"`
	Status          enums.RecurringProfileStatus `json:"status"`
	LastInvoiceDate *types.Date                  `json:"last_invoice_date"`
	NextInvoiceDate *types.Date                  `json:"next_invoice_date"`
	Item            ItemView                     `json:"item"`
	LineTotal       string                       `json:"line_total"`
	AmountDisplay   string                       `json:"amount_display"`
	Notes           *string                      `json:"notes,omitempty"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

// NewView renders m, recomputing the next invoice date and line total.
func NewView(m *models.RecurringProfile, currency string) (ProfileView, error) {
	summary, err := recurring.Summarize(ToCore(m))
	if err != nil {
		return ProfileView{}, err
	}

	view := ProfileView{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		ProfileName:     m.ProfileName,
		Frequency:       m.Frequency,
		StartDate:       types.NewDate(m.StartDate),
		EndDate:         types.DatePtr(m.EndDate),
		Status:          summary.Status,
		LastInvoiceDate: types.DatePtr(summary.LastInvoiceDate),
		NextInvoiceDate: types.DatePtr(summary.NextInvoiceDate),
		Item: ItemView{
			ItemID:     m.ItemID,
			Rate:       m.Rate.StringFixed(2),
			Quantity:   m.Quantity,
			TaxPercent: m.TaxPercent.StringFixed(2),
		},
		LineTotal:     summary.LineTotal.StringFixed(2),
		AmountDisplay: recurring.FormatAmount(currency, summary.LineTotal),
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Customer != nil {
		view.CustomerName = m.Customer.BillingName
	}
	if m.Item != nil {
		view.Item.ItemName = m.Item.Name
	}
	return view, nil
}
