package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

// Repository exposes customer persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a customer repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new customer row.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// FindByID loads a customer by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

type listQuery struct {
	search string
	limit  int
	cursor *pkgpagination.Cursor
}

// List returns customers newest first, optionally filtered by reference or billing name.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{})

	if term := strings.ToLower(strings.TrimSpace(opts.search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(reference) LIKE ? OR LOWER(billing_name) LIKE ?", like, like)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	var rows []models.Customer
	if err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
