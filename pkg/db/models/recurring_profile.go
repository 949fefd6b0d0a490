package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
)

// RecurringProfile stores a recurring invoice profile. The next invoice date is
// derived from the schedule columns and never persisted.
type RecurringProfile struct {
	ID              uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID                    `gorm:"column:customer_id;type:uuid;not null"`
	ProfileName     string                       `gorm:"column:profile_name;not null"`
	Frequency       enums.RecurringFrequency     `gorm:"column:frequency;type:recurring_frequency;not null"`
	StartDate       time.Time                    `gorm:"column:start_date;type:date;not null"`
	EndDate         *time.Time                   `gorm:"column:end_date;type:date"`
	Status          enums.RecurringProfileStatus `gorm:"column:status;type:recurring_profile_status;not null;default:active"`
	ItemID          uuid.UUID                    `gorm:"column:item_id;type:uuid;not null"`
	Rate            decimal.Decimal              `gorm:"column:rate;type:numeric(12,2);not null"`
	Quantity        int                          `gorm:"column:quantity;not null;default:1"`
	TaxPercent      decimal.Decimal              `gorm:"column:tax_percent;type:numeric(5,2);not null;default:0"`
	LastInvoiceDate *time.Time                   `gorm:"column:last_invoice_date;type:date"`
	Notes           *string                      `gorm:"column:notes"`
	CancelledAt     *time.Time                   `gorm:"column:cancelled_at"`
	CompletedAt     *time.Time                   `gorm:"column:completed_at"`
	CreatedAt       time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                    `gorm:"column:updated_at;autoUpdateTime"`

	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID"`
	Item     *Item     `gorm:"foreignKey:ItemID;references:ID"`
}
