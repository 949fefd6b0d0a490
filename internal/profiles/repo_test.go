package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/liftbooks-backend/pkg/db/dbtest"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
)

func TestListInvoicingCandidatesPagesActiveStartedProfiles(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	customer := models.Customer{ID: uuid.New(), Reference: "C-1", BillingName: "C1"}
	require.NoError(t, conn.Create(&customer).Error)
	item := models.Item{ID: uuid.New(), Name: "AMC", Unit: "nos"}
	require.NoError(t, conn.Create(&item).Error)

	today := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	mk := func(start time.Time, status enums.RecurringProfileStatus) uuid.UUID {
		row := &models.RecurringProfile{
			CustomerID:  customer.ID,
			ProfileName: "p",
			Frequency:   enums.RecurringFrequencyMonth,
			StartDate:   start,
			Status:      status,
			ItemID:      item.ID,
			Rate:        decimal.NewFromInt(100),
			Quantity:    1,
			TaxPercent:  decimal.Zero,
		}
		require.NoError(t, repo.Create(ctx, row))
		return row.ID
	}

	want := map[uuid.UUID]bool{
		mk(today.AddDate(0, -3, 0), enums.RecurringProfileStatusActive): true,
		mk(today, enums.RecurringProfileStatusActive):                   true,
		mk(today.AddDate(0, -1, 0), enums.RecurringProfileStatusActive): true,
	}
	mk(today.AddDate(0, 0, 1), enums.RecurringProfileStatusActive)
	mk(today.AddDate(-1, 0, 0), enums.RecurringProfileStatusCancelled)
	mk(today.AddDate(-1, 0, 0), enums.RecurringProfileStatusCompleted)

	seen := map[uuid.UUID]bool{}
	after := uuid.Nil
	for {
		rows, err := repo.ListInvoicingCandidates(ctx, today, after, 2)
		require.NoError(t, err)
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			seen[row.ID] = true
			after = row.ID
		}
	}
	assert.Equal(t, want, seen)
}

func TestFindByIDPreloadsAssociations(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	customer := models.Customer{ID: uuid.New(), Reference: "C-2", BillingName: "Green Heights"}
	require.NoError(t, conn.Create(&customer).Error)
	item := models.Item{ID: uuid.New(), Name: "Lift AMC", Unit: "nos"}
	require.NoError(t, conn.Create(&item).Error)

	row := &models.RecurringProfile{
		CustomerID:  customer.ID,
		ProfileName: "Green Heights AMC",
		Frequency:   enums.RecurringFrequencyYear,
		StartDate:   time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		Status:      enums.RecurringProfileStatusActive,
		ItemID:      item.ID,
		Rate:        decimal.RequireFromString("12000.50"),
		Quantity:    1,
		TaxPercent:  decimal.NewFromInt(18),
	}
	require.NoError(t, repo.Create(ctx, row))

	found, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Customer)
	require.NotNil(t, found.Item)
	assert.Equal(t, "Green Heights", found.Customer.BillingName)
	assert.True(t, found.Rate.Equal(decimal.RequireFromString("12000.5")))
	assert.True(t, found.StartDate.Equal(row.StartDate))
}
