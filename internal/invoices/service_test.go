package invoices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/internal/recurring"
	dbpkg "github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/dbtest"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	pkgpagination "github.com/angelmondragon/liftbooks-backend/pkg/pagination"
)

type recordingMetrics struct {
	generated int
	completed int
	failures  map[string]int
}

func (m *recordingMetrics) IncGenerated(string, string) { m.generated++ }
func (m *recordingMetrics) IncCompleted()               { m.completed++ }
func (m *recordingMetrics) IncFailure(reason string) {
	if m.failures == nil {
		m.failures = map[string]int{}
	}
	m.failures[reason]++
}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	metrics  *recordingMetrics
	customer models.Customer
	item     models.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	customer := models.Customer{ID: uuid.New(), Reference: "CUST-1", BillingName: "Skyline"}
	require.NoError(t, conn.Create(&customer).Error)
	item := models.Item{ID: uuid.New(), Name: "AMC", Unit: "nos"}
	require.NoError(t, conn.Create(&item).Error)

	rec := &recordingMetrics{}
	svc, err := NewService(Deps{
		Invoices:       NewRepository(conn),
		Profiles:       profiles.NewRepository(conn),
		Tx:             dbpkg.NewFromConn(conn),
		Outbox:         outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:        rec,
		Currency:       "INR",
		InvoiceDueDays: 15,
		Now:            func() time.Time { return time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, metrics: rec, customer: customer, item: item}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) profile(t *testing.T, start time.Time, end *time.Time) *models.RecurringProfile {
	t.Helper()
	row := &models.RecurringProfile{
		CustomerID:  f.customer.ID,
		ProfileName: "Tower A",
		Frequency:   enums.RecurringFrequencyMonth,
		StartDate:   start,
		EndDate:     end,
		Status:      enums.RecurringProfileStatusActive,
		ItemID:      f.item.ID,
		Rate:        decimal.NewFromInt(200),
		Quantity:    1,
		TaxPercent:  decimal.NewFromInt(18),
	}
	require.NoError(t, profiles.NewRepository(f.conn).Create(context.Background(), row))
	return row
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.RecurringProfile {
	t.Helper()
	var row models.RecurringProfile
	require.NoError(t, f.conn.First(&row, "id = ?", id).Error)
	return row
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestGenerateIssuesOnDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, day(2024, time.January, 31), nil)

	got, err := f.svc.Generate(ctx, p.ID, day(2024, time.March, 5), TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got.Invoice.IssueDate.String())
	assert.Equal(t, "2024-03-15", got.Invoice.DueDate.String())
	assert.Equal(t, "200.00", got.Invoice.Subtotal)
	assert.Equal(t, "36.00", got.Invoice.TaxAmount)
	assert.Equal(t, "236.00", got.Invoice.Total)
	assert.Equal(t, "INR 236.00", got.Invoice.AmountDisplay)
	assert.Regexp(t, `^INV-20240229-[0-9A-F]{8}$`, got.Invoice.InvoiceNumber)
	assert.Equal(t, enums.RecurringProfileStatusActive, got.ProfileStatus)
	require.NotNil(t, got.NextInvoiceDate)
	assert.Equal(t, "2024-03-29", got.NextInvoiceDate.String())

	stored := f.reload(t, p.ID)
	require.NotNil(t, stored.LastInvoiceDate)
	assert.True(t, stored.LastInvoiceDate.Equal(day(2024, time.February, 29)))
	assert.EqualValues(t, 1, f.events(t, enums.EventRecurringInvoiceGenerated))
	assert.Equal(t, 1, f.metrics.generated)

	_, err = f.svc.Generate(ctx, p.ID, day(2024, time.March, 5), TriggerAPI)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotDue))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "2024-03-29", typed.Details().(map[string]any)["next_invoice_date"])
	assert.EqualValues(t, 1, f.events(t, enums.EventRecurringInvoiceGenerated))
}

func TestGenerateCompletesAtEndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := day(2024, time.March, 1)
	p := f.profile(t, day(2024, time.January, 1), &end)
	today := day(2024, time.April, 10)

	first, err := f.svc.Generate(ctx, p.ID, today, TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", first.Invoice.IssueDate.String())
	assert.Equal(t, enums.RecurringProfileStatusActive, first.ProfileStatus)

	second, err := f.svc.Generate(ctx, p.ID, today, TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", second.Invoice.IssueDate.String())
	assert.Equal(t, enums.RecurringProfileStatusCompleted, second.ProfileStatus)
	assert.Nil(t, second.NextInvoiceDate)

	stored := f.reload(t, p.ID)
	assert.Equal(t, enums.RecurringProfileStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.EqualValues(t, 1, f.events(t, enums.EventRecurringProfileCompleted))
	assert.Equal(t, 1, f.metrics.completed)

	_, err = f.svc.Generate(ctx, p.ID, today, TriggerCron)
	assert.True(t, errors.Is(err, recurring.ErrInvalidTransition))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 1, f.metrics.failures["state_conflict"])
}

func TestExhaustedScheduleIsClosedWithoutInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := day(2024, time.January, 15)
	p := f.profile(t, day(2024, time.January, 1), &end)

	_, err := f.svc.Generate(ctx, p.ID, day(2024, time.May, 1), TriggerCron)
	assert.True(t, errors.Is(err, ErrScheduleExhausted))

	closed, err := f.svc.CloseExhausted(ctx, p.ID, TriggerCron)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, enums.RecurringProfileStatusCompleted, f.reload(t, p.ID).Status)
	assert.EqualValues(t, 1, f.events(t, enums.EventRecurringProfileCompleted))

	closed, err = f.svc.CloseExhausted(ctx, p.ID, TriggerCron)
	require.NoError(t, err)
	assert.False(t, closed)

	var invoices int64
	require.NoError(t, f.conn.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, invoices)
}

func TestCloseExhaustedRejectsLiveSchedule(t *testing.T) {
	f := newFixture(t)
	p := f.profile(t, day(2024, time.January, 1), nil)

	_, err := f.svc.CloseExhausted(context.Background(), p.ID, TriggerCron)
	assert.True(t, errors.Is(err, recurring.ErrInvalidTransition))
	assert.Equal(t, enums.RecurringProfileStatusActive, f.reload(t, p.ID).Status)
}

func TestGenerateUnknownProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), uuid.New(), day(2024, time.May, 1), TriggerAPI)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListForProfilePaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, day(2024, time.January, 1), nil)
	today := day(2024, time.May, 15)
	for i := 0; i < 4; i++ {
		_, err := f.svc.Generate(ctx, p.ID, today, TriggerCron)
		require.NoError(t, err)
	}

	first, err := f.svc.ListForProfile(ctx, p.ID, pkgpagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, "2024-05-01", first.Items[0].IssueDate.String())
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListForProfile(ctx, p.ID, pkgpagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "2024-02-01", second.Items[0].IssueDate.String())
	assert.Empty(t, second.NextCursor)

	_, err = f.svc.ListForProfile(ctx, uuid.New(), pkgpagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeletingProfileKeepsInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.profile(t, day(2024, time.January, 1), nil)
	_, err := f.svc.Generate(ctx, p.ID, day(2024, time.February, 1), TriggerAPI)
	require.NoError(t, err)

	require.NoError(t, f.conn.Exec("PRAGMA foreign_keys = ON").Error)
	_, err = profiles.NewRepository(f.conn).Delete(ctx, p.ID)
	require.NoError(t, err)

	var inv models.Invoice
	require.NoError(t, f.conn.First(&inv).Error)
	assert.Nil(t, inv.RecurringProfileID)
}
