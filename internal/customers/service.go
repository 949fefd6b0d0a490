package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

type customersRepository interface {
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, opts listQuery) ([]models.Customer, error)
}

// Service exposes customer lookup and onboarding.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params ListParams) (*pkgpagination.Page[models.Customer], error)
}

type service struct {
	repo customersRepository
}

// CreateInput holds the fields accepted when registering a customer.
type CreateInput struct {
	Reference   string
	BillingName string
	Email       *string
	Phone       *string
	GSTIN       *string
	Address     *string
}

// ListParams filters the customer list.
type ListParams struct {
	Search string
	pkgpagination.Params
}

// NewService builds a customer service backed by repo.
func NewService(repo customersRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Customer, error) {
	details := map[string]string{}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		details["reference"] = "reference is required"
	}
	billingName := strings.TrimSpace(input.BillingName)
	if billingName == "" {
		details["billing_name"] = "billing name is required"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer").WithDetails(details)
	}

	customer := &models.Customer{
		Reference:   reference,
		BillingName: billingName,
		Email:       trimmed(input.Email),
		Phone:       trimmed(input.Phone),
		GSTIN:       trimmed(input.GSTIN),
		Address:     trimmed(input.Address),
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "customer reference already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer")
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pkgpagination.Page[models.Customer], error) {
	query := listQuery{
		search: params.Search,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}

	page := pkgpagination.Paginate(rows, params.Limit, func(c models.Customer) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
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
