package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a billable service or part (AMC visit, breakdown call, spare).
type Item struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string          `gorm:"column:name;not null"`
	SKU               *string         `gorm:"column:sku;uniqueIndex"`
	Description       *string         `gorm:"column:description"`
	Unit              string          `gorm:"column:unit;not null;default:nos"`
	DefaultRate       decimal.Decimal `gorm:"column:default_rate;type:numeric(12,2);not null;default:0"`
	DefaultTaxPercent decimal.Decimal `gorm:"column:default_tax_percent;type:numeric(5,2);not null;default:0"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
