package profiles

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

// Repository exposes recurring profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profile repository tied to the provided GORM DB.
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

// Create inserts a new profile row.
func (r *Repository) Create(ctx context.Context, profile *models.RecurringProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(profile).Error
}

// FindByID loads a profile with its customer and item.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RecurringProfile, error) {
	var profile models.RecurringProfile
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Item").
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIDForUpdate loads a profile and, on Postgres, locks the row for the
// rest of the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RecurringProfile, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var profile models.RecurringProfile
	if err := query.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Save persists every column of profile without touching associations.
func (r *Repository) Save(ctx context.Context, profile *models.RecurringProfile) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(profile).Error
}

// Delete hard-deletes a profile and reports how many rows were removed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RecurringProfile{})
	return res.RowsAffected, res.Error
}

type listQuery struct {
	search     string
	status     *enums.RecurringProfileStatus
	customerID *uuid.UUID
	limit      int
	cursor     *pkgpagination.Cursor
}

// List returns profiles newest first. The search term matches the profile name
// and the customer's reference or billing name.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.RecurringProfile, error) {
	query := r.db.WithContext(ctx).
		Model(&models.RecurringProfile{}).
		Joins("LEFT JOIN customers ON customers.id = recurring_profiles.customer_id")

	if term := strings.ToLower(strings.TrimSpace(opts.search)); term != "" {
		like := "%" + term + "%"
		query = query.Where(
			"LOWER(recurring_profiles.profile_name) LIKE ? OR LOWER(customers.reference) LIKE ? OR LOWER(customers.billing_name) LIKE ?",
			like, like, like,
		)
	}
	if opts.status != nil {
		query = query.Where("recurring_profiles.status = ?", *opts.status)
	}
	if opts.customerID != nil {
		query = query.Where("recurring_profiles.customer_id = ?", *opts.customerID)
	}
	if opts.cursor != nil {
		query = query.Where(
			"(recurring_profiles.created_at < ?) OR (recurring_profiles.created_at = ? AND recurring_profiles.id < ?)",
			opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID,
		)
	}

	var rows []models.RecurringProfile
	err := query.
		Preload("Customer").
		Preload("Item").
		Order("recurring_profiles.created_at DESC").
		Order("recurring_profiles.id DESC").
		Limit(opts.limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListInvoicingCandidates pages through active profiles that started on or
// before today, ordered by id. Pass the last id of the previous page as afterID.
func (r *Repository) ListInvoicingCandidates(ctx context.Context, today time.Time, afterID uuid.UUID, limit int) ([]models.RecurringProfile, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.RecurringProfileStatusActive).
		Where("start_date <= ?", today)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var rows []models.RecurringProfile
	if err := query.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
