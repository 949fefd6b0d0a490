package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
)

const (
	outboxRetentionJobName = "outbox-retention"
	outboxRetentionDays    = 30
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountUnpublished(ctx context.Context) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPruner
	// Retention in days; 30 when zero.
	Retention int
}

// outboxRetentionJob deletes published outbox rows older than the retention
// window and logs how many events are still waiting to publish.
type outboxRetentionJob struct {
	logg   *logger.Logger
	repo   outboxPruner
	window time.Duration
	now    func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("outbox retention: logger is nil")
	case params.Repository == nil:
		return nil, errors.New("outbox retention: repository is nil")
	}
	days := params.Retention
	if days <= 0 {
		days = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:   params.Logger,
		repo:   params.Repository,
		window: time.Duration(days) * 24 * time.Hour,
		now:    time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune published before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	fields := map[string]any{"cutoff": cutoff, "rows_deleted": deleted}

	// the backlog figure is informational; a failed count does not fail the job
	if backlog, err := j.repo.CountUnpublished(ctx); err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "outbox.retention.backlog_unavailable")
	} else {
		fields["unpublished"] = backlog
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox.retention.done")
	return nil
}
