package profiles

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
)

// ToCore converts a stored profile into the lifecycle model.
func ToCore(m *models.RecurringProfile) recurring.Profile {
	return recurring.Profile{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		ProfileName: m.ProfileName,
		Frequency:   m.Frequency,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Status:      m.Status,
		LineItem: recurring.LineItem{
			ItemID:     m.ItemID,
			Rate:       decimal.NewNullDecimal(m.Rate),
			Quantity:   m.Quantity,
			TaxPercent: m.TaxPercent,
		},
		LastInvoiceDate: m.LastInvoiceDate,
	}
}

// Apply copies the lifecycle fields of p onto m.
func Apply(m *models.RecurringProfile, p recurring.Profile) {
	m.CustomerID = p.CustomerID
	m.ProfileName = p.ProfileName
	m.Frequency = p.Frequency
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.Status = p.Status
	m.ItemID = p.LineItem.ItemID
	m.Rate = p.LineItem.Rate.Decimal
	m.Quantity = p.LineItem.Quantity
	m.TaxPercent = p.LineItem.TaxPercent
	m.LastInvoiceDate = p.LastInvoiceDate
}
