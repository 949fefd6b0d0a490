package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a billed party (building society, facility owner) referenced by recurring profiles.
type Customer struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference   string    `gorm:"column:reference;not null;uniqueIndex"`
	BillingName string    `gorm:"column:billing_name;not null"`
	Email       *string   `gorm:"column:email"`
	Phone       *string   `gorm:"column:phone"`
	GSTIN       *string   `gorm:"column:gstin"`
	Address     *string   `gorm:"column:address"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
