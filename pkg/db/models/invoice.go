package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
)

// Invoice is a document generated by an invoicing run for one recurring profile period.
type Invoice struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber      string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	RecurringProfileID *uuid.UUID          `gorm:"column:recurring_profile_id;type:uuid"`
	CustomerID         uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	ItemID             uuid.UUID           `gorm:"column:item_id;type:uuid;not null"`
	Status             enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:issued"`
	IssueDate          time.Time           `gorm:"column:issue_date;type:date;not null"`
	DueDate            time.Time           `gorm:"column:due_date;type:date;not null"`
	Rate               decimal.Decimal     `gorm:"column:rate;type:numeric(12,2);not null"`
	Quantity           int                 `gorm:"column:quantity;not null"`
	TaxPercent         decimal.Decimal     `gorm:"column:tax_percent;type:numeric(5,2);not null"`
	Subtotal           decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount          decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	Total              decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	CurrencyCode       string              `gorm:"column:currency_code;not null"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
