package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	dbpkg "github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

type itemsRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Search(ctx context.Context, term string, limit int) ([]models.Item, error)
}

// Service exposes the billable item catalog.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	Search(ctx context.Context, term string, limit int) ([]models.Item, error)
}

type service struct {
	repo itemsRepository
}

// CreateInput holds the fields accepted when adding a catalog item.
type CreateInput struct {
	Name              string
	SKU               *string
	Description       *string
	Unit              string
	DefaultRate       decimal.Decimal
	DefaultTaxPercent decimal.Decimal
}

// NewService builds an item service backed by repo.
func NewService(repo itemsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Item, error) {
	details := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		details["name"] = "name is required"
	}
	if msg := recurring.RateProblem(input.DefaultRate); msg != "" {
		details["default_rate"] = "default " + msg
	}
	if msg := recurring.TaxPercentProblem(input.DefaultTaxPercent); msg != "" {
		details["default_tax_percent"] = "default " + msg
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item").WithDetails(details)
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "nos"
	}
	item := &models.Item{
		Name:              name,
		SKU:               trimmed(input.SKU),
		Description:       trimmed(input.Description),
		Unit:              unit,
		DefaultRate:       input.DefaultRate,
		DefaultTaxPercent: input.DefaultTaxPercent,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup item")
	}
	return item, nil
}

func (s *service) Search(ctx context.Context, term string, limit int) ([]models.Item, error) {
	rows, err := s.repo.Search(ctx, term, pkgpagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search items")
	}
	return rows, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
