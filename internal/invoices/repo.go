package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

// Repository exposes invoice persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an invoice repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts an invoice row.
func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

// ListByProfile returns a profile's invoices, latest issue date first.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID, limit int, cursor *pkgpagination.Cursor) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Where("recurring_profile_id = ?", profileID)
	if cursor != nil {
		query = query.Where("(issue_date < ?) OR (issue_date = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Invoice
	if err := query.Order("issue_date DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
