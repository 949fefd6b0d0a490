// Package relay moves committed outbox rows to Pub/Sub.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/liftbooks-backend/pkg/config"
	"github.com/angelmondragon/liftbooks-backend/pkg/db/models"
	"github.com/angelmondragon/liftbooks-backend/pkg/enums"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox/registry"
	"github.com/angelmondragon/liftbooks-backend/pkg/pubsub"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
)

// Database opens the transaction a batch is claimed and settled in.
type Database interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Publisher is satisfied by *pubsub.Client.
type Publisher interface {
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic string, msg *gcppubsub.Message) (pubsub.Result, error)
}

// Events is the outbox_events side of the relay.
type Events interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID, at time.Time) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, at time.Time) error
}

// DeadLetters records rows that will never be published.
type DeadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

// Resolver turns a stored row into its topic and message body.
type Resolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Metrics counts relay outcomes. A nil Metrics records nothing.
type Metrics interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType, reason string)
}

// Params carries the relay's dependencies. Metrics may be nil.
type Params struct {
	Logger      *logger.Logger
	DB          Database
	Publisher   Publisher
	Events      Events
	DeadLetters DeadLetters
	Resolver    Resolver
	Metrics     Metrics
	Config      config.OutboxConfig
}

// Relay claims a batch of unpublished rows inside one transaction, publishes
// them concurrently and records each outcome before committing. A row is
// retried until it publishes or reaches MaxAttempts, then dead-lettered.
type Relay struct {
	logg        *logger.Logger
	db          Database
	pub         Publisher
	events      Events
	dlq         DeadLetters
	resolver    Resolver
	metrics     Metrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

// New fills batch size and attempt defaults and rejects missing dependencies.
func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("relay: logger is nil")
	case p.DB == nil:
		return nil, errors.New("relay: database is nil")
	case p.Publisher == nil:
		return nil, errors.New("relay: publisher is nil")
	case p.Events == nil:
		return nil, errors.New("relay: outbox repository is nil")
	case p.DeadLetters == nil:
		return nil, errors.New("relay: dlq repository is nil")
	case p.Resolver == nil:
		return nil, errors.New("relay: event registry is nil")
	}
	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pub:         p.Publisher,
		events:      p.Events,
		dlq:         p.DeadLetters,
		resolver:    p.Resolver,
		metrics:     p.Metrics,
		batchSize:   p.Config.BatchSize,
		maxAttempts: p.Config.MaxAttempts,
		poll:        p.Config.PollInterval(),
		now:         time.Now,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	return r, nil
}

// Run pings both dependencies, then drains until ctx is canceled. A full
// batch is followed straight away by the next; a short batch waits one poll
// interval and a failed one waits with exponential backoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("relay: database ping: %w", err)
	}
	if err := r.pub.Ping(ctx); err != nil {
		return fmt.Errorf("relay: pubsub ping: %w", err)
	}

	retry := backoff{base: r.poll, max: maxBackoff}
	for ctx.Err() == nil {
		n, err := r.Drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "relay.batch.failed", err)
			wait = jitter(retry.next())
		case n >= r.batchSize:
			retry.reset()
			continue
		default:
			retry.reset()
			wait = jitter(r.poll)
		}
		if err := sleep(ctx, wait); err != nil {
			break
		}
	}
	r.logg.Info(ctx, "relay.stopped")
	return ctx.Err()
}

type inFlight struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	result   pubsub.Result
	err      error
}

// Drain handles one batch and returns how many rows it claimed. Publish
// failures are recorded on the rows; only bookkeeping failures are returned,
// which rolls the whole batch back.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		claimed = len(rows)
		if claimed == 0 {
			return nil
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		batch := make([]inFlight, len(rows))
		for i, row := range rows {
			batch[i] = r.start(pubCtx, row)
		}
		for i := range batch {
			f := &batch[i]
			if f.err == nil {
				_, f.err = f.result.Get(pubCtx)
			}
			if err := r.settle(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// start resolves the row and queues its message without waiting for the server.
func (r *Relay) start(ctx context.Context, row models.OutboxEvent) inFlight {
	f := inFlight{event: row}
	if f.resolved, f.err = r.resolver.Resolve(row); f.err != nil {
		return f
	}
	f.result, f.err = r.pub.Publish(ctx, f.resolved.Descriptor.Topic, message(row, f.resolved))
	if f.err != nil {
		f.err = registry.NewNonRetryableError(f.err)
	}
	return f
}

func message(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p := resolved.Envelope.Producer; p != nil && p.Trigger != "" {
		attrs["trigger"] = p.Trigger
	}
	return &gcppubsub.Message{Data: row.Payload, Attributes: attrs}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, f *inFlight) error {
	row := f.event
	ctx = r.logg.WithFields(ctx, logFields(f))
	eventType := string(row.EventType)

	if f.err == nil {
		if err := r.events.MarkPublishedTx(tx, row.ID, r.now().UTC()); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.incPublished(eventType)
		r.logg.Info(ctx, "relay.published")
		return nil
	}

	attempt := row.AttemptCount + 1
	final := registry.IsNonRetryable(f.err)
	if !final && attempt >= r.maxAttempts {
		final = true
		f.err = fmt.Errorf("gave up after %d attempts: %w", attempt, f.err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": f.err.Error()})

	if !final {
		if err := r.events.MarkFailedTx(tx, row.ID, f.err); err != nil {
			return fmt.Errorf("mark %s failed: %w", row.ID, err)
		}
		r.incFailed(eventType)
		r.logg.Warn(ctx, "relay.publish.retry")
		return nil
	}

	reason := enums.OutboxDLQReasonFor(registry.IsNonRetryable(f.err))
	at := r.now().UTC()
	if err := r.dlq.InsertTx(tx, outbox.FromEvent(row, reason, f.err, at)); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, f.err, at); err != nil {
		return fmt.Errorf("mark %s terminal: %w", row.ID, err)
	}
	r.incDeadLettered(eventType, string(reason))
	r.logg.Warn(r.logg.WithField(ctx, "dlq_reason", reason), "relay.dead_lettered")
	return nil
}

func logFields(f *inFlight) map[string]any {
	fields := map[string]any{
		"outbox_id":    f.event.ID.String(),
		"event_type":   f.event.EventType,
		"aggregate_id": f.event.AggregateID.String(),
	}
	if f.resolved != nil {
		fields["event_id"] = f.resolved.Envelope.EventID
		fields["topic"] = f.resolved.Descriptor.Topic
	}
	return fields
}

func (r *Relay) incPublished(eventType string) {
	if r.metrics != nil {
		r.metrics.IncPublished(eventType)
	}
}

func (r *Relay) incFailed(eventType string) {
	if r.metrics != nil {
		r.metrics.IncFailed(eventType)
	}
}

func (r *Relay) incDeadLettered(eventType, reason string) {
	if r.metrics != nil {
		r.metrics.IncDeadLettered(eventType, reason)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
