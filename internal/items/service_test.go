package items

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/liftbooks-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestCreateAndSearchItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sku := "AMC-STD"

	amc, err := svc.Create(ctx, CreateInput{
		Name:              "Comprehensive AMC visit",
		SKU:               &sku,
		DefaultRate:       decimal.RequireFromString("1500"),
		DefaultTaxPercent: decimal.RequireFromString("18"),
	})
	require.NoError(t, err)
	assert.Equal(t, "nos", amc.Unit)

	_, err = svc.Create(ctx, CreateInput{Name: "Breakdown call", Unit: "visit"})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "amc", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, amc.ID, found[0].ID)

	bySKU, err := svc.Search(ctx, "amc-std", 0)
	require.NoError(t, err)
	require.Len(t, bySKU, 1)

	all, err := svc.Search(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Breakdown call", all[0].Name)

	got, err := svc.Get(ctx, amc.ID)
	require.NoError(t, err)
	assert.True(t, got.DefaultRate.Equal(decimal.NewFromInt(1500)))
}

func TestCreateItemValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{DefaultRate: decimal.NewFromInt(-1)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "default_rate")

	_, err = svc.Create(context.Background(), CreateInput{
		Name:              "Rope replacement",
		DefaultRate:       decimal.RequireFromString("10.005"),
		DefaultTaxPercent: decimal.NewFromInt(1000),
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	details = typed.Details().(map[string]string)
	assert.Equal(t, "default rate must have at most 2 decimal places", details["default_rate"])
	assert.Equal(t, "default tax percent must be less than 1000", details["default_tax_percent"])
}

func TestCreateItemDuplicateSKU(t *testing.T) {
	svc := newTestService(t)
	sku := "SPARE-ROPE"
	_, err := svc.Create(context.Background(), CreateInput{Name: "Rope", SKU: &sku})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Name: "Rope again", SKU: &sku})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestGetItemNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
