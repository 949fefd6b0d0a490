package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/liftbooks-backend/internal/invoices"
	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/liftbooks-backend/pkg/errors"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/types"
)

const (
	defaultInvoiceBatchSize = 100
	defaultMaxCatchUp       = 12
)

type candidateLister interface {
	ListInvoicingCandidates(ctx context.Context, today time.Time, afterID uuid.UUID, limit int) ([]models.RecurringProfile, error)
}

type invoiceGenerator interface {
	Generate(ctx context.Context, profileID uuid.UUID, today time.Time, trigger string) (*invoices.Generated, error)
	CloseExhausted(ctx context.Context, profileID uuid.UUID, trigger string) (bool, error)
}

// RecurringInvoiceJobParams configure the invoicing run.
type RecurringInvoiceJobParams struct {
	Logger     *logger.Logger
	Profiles   candidateLister
	Invoices   invoiceGenerator
	BatchSize  int
	MaxCatchUp int
}

// NewRecurringInvoiceJob builds the job that bills every due active profile.
func NewRecurringInvoiceJob(params RecurringInvoiceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultInvoiceBatchSize
	}
	catchUp := params.MaxCatchUp
	if catchUp <= 0 {
		catchUp = defaultMaxCatchUp
	}
	return &recurringInvoiceJob{
		logg:       params.Logger,
		profiles:   params.Profiles,
		invoices:   params.Invoices,
		batchSize:  batch,
		maxCatchUp: catchUp,
		now:        time.Now,
	}, nil
}

type recurringInvoiceJob struct {
	logg       *logger.Logger
	profiles   candidateLister
	invoices   invoiceGenerator
	batchSize  int
	maxCatchUp int
	now        func() time.Time
}

type invoiceRunStats struct {
	scanned   int
	generated int
	completed int
	failed    int
}

func (j *recurringInvoiceJob) Name() string { return "recurring-invoicing" }

// Run pages through candidates by id. A failing profile is recorded and the
// run moves on to the next one.
func (j *recurringInvoiceJob) Run(ctx context.Context) error {
	today := types.TruncateDay(j.now().UTC())
	var (
		errs  error
		stats invoiceRunStats
		after = uuid.Nil
	)
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		rows, err := j.profiles.ListInvoicingCandidates(ctx, today, after, j.batchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list invoicing candidates: %w", err))
		}
		for i := range rows {
			row := &rows[i]
			after = row.ID
			stats.scanned++
			if err := j.processProfile(ctx, row, today, &stats); err != nil {
				stats.failed++
				profileCtx := j.logg.WithFields(j.logg.WithProfileID(ctx, row.ID.String()), map[string]any{
					"retryable": pkgerrors.IsRetryable(err),
				})
				j.logg.Error(profileCtx, "recurring invoicing failed for profile", err)
				errs = multierr.Append(errs, fmt.Errorf("profile %s: %w", row.ID, err))
			}
		}
		if len(rows) < j.batchSize {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"run_date":           today.Format(types.DateLayout),
		"profiles_scanned":   stats.scanned,
		"invoices_generated": stats.generated,
		"profiles_completed": stats.completed,
		"profiles_failed":    stats.failed,
	})
	j.logg.Info(logCtx, "recurring invoicing run complete")
	return errs
}

// processProfile bills each missed period up to the catch-up ceiling.
func (j *recurringInvoiceJob) processProfile(ctx context.Context, row *models.RecurringProfile, today time.Time, stats *invoiceRunStats) error {
	due, next, err := profiles.ToCore(row).IsDue(today)
	if err != nil {
		return err
	}
	if next == nil {
		closed, err := j.invoices.CloseExhausted(ctx, row.ID, invoices.TriggerCron)
		if err != nil {
			return err
		}
		if closed {
			stats.completed++
		}
		return nil
	}
	if !due {
		return nil
	}

	for i := 0; i < j.maxCatchUp; i++ {
		result, err := j.invoices.Generate(ctx, row.ID, today, invoices.TriggerCron)
		if err != nil {
			if errors.Is(err, invoices.ErrNotDue) {
				return nil
			}
			return err
		}
		stats.generated++
		if result.ProfileStatus != enums.RecurringProfileStatusActive {
			stats.completed++
			return nil
		}
		if result.NextInvoiceDate == nil || result.NextInvoiceDate.After(today) {
			return nil
		}
	}
	profileCtx := j.logg.WithProfileID(ctx, row.ID.String())
	j.logg.Warn(profileCtx, "catch-up limit reached; remaining periods deferred to the next run")
	return nil
}
