package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/liftbooks-backend/internal/cron"
	"github.com/angelmondragon/liftbooks-backend/internal/invoices"
	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/pkg/config"
	"github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/instance"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/metrics"
	"github.com/angelmondragon/liftbooks-backend/pkg/migrate"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	"github.com/angelmondragon/liftbooks-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run one locked cycle of every job, then exit")
	flag.Parse()
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *once); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func run(ctx context.Context, once bool) error {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	cfg, err := config.Load()
	if err != nil {
		boot.Error(ctx, "config.load.failed", err)
		return err
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": instance.GetID()})
	fatal := func(msg string, err error) error {
		logg.Error(ctx, msg, err)
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fatal("db.connect.failed", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fatal("migrate.dev.failed", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fatal("redis.connect.failed", err)
	}
	defer redisClient.Close()

	svc, jobs, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fatal("cron.init.failed", err)
	}
	ctx = logg.WithField(ctx, "jobs", jobs.Names())

	if once {
		logg.Info(ctx, "cron.once")
		if err := svc.RunOnce(ctx); err != nil {
			return fatal("cron.once.failed", err)
		}
		return nil
	}
	logg.Info(ctx, "cron.starting")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fatal("cron.stopped.unexpectedly", err)
	}
	logg.Info(ctx, "cron.stopped")
	return nil
}

// buildService registers the invoicing and outbox retention jobs behind one
// redis lease scoped to the environment.
func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, *cron.Registry, error) {
	profileRepo := profiles.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())

	generator, err := invoices.NewService(invoices.Deps{
		Invoices:       invoices.NewRepository(dbClient.DB()),
		Profiles:       profileRepo,
		Tx:             dbClient,
		Outbox:         outbox.NewService(outboxRepo, logg),
		Metrics:        metrics.NewBillingMetrics(prometheus.DefaultRegisterer),
		Currency:       cfg.Billing.Currency,
		InvoiceDueDays: cfg.Billing.InvoiceDueDays,
	})
	if err != nil {
		return nil, nil, err
	}
	invoicing, err := cron.NewRecurringInvoiceJob(cron.RecurringInvoiceJobParams{
		Logger:     logg,
		Profiles:   profileRepo,
		Invoices:   generator,
		BatchSize:  cfg.Billing.BatchSize,
		MaxCatchUp: cfg.Billing.MaxCatchUp,
	})
	if err != nil {
		return nil, nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, nil, err
	}
	jobs, err := cron.NewRegistry(invoicing, retention)
	if err != nil {
		return nil, nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName, cfg.App.Env), 0)
	if err != nil {
		return nil, nil, err
	}
	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Billing.CronInterval,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, jobs, nil
}
