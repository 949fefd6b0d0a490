package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/liftbooks-backend/internal/relay"
	"github.com/angelmondragon/liftbooks-backend/pkg/config"
	"github.com/angelmondragon/liftbooks-backend/pkg/db"
	"github.com/angelmondragon/liftbooks-backend/pkg/instance"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	"github.com/angelmondragon/liftbooks-backend/pkg/metrics"
	"github.com/angelmondragon/liftbooks-backend/pkg/migrate"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox"
	"github.com/angelmondragon/liftbooks-backend/pkg/outbox/registry"
	"github.com/angelmondragon/liftbooks-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fatal("pubsub.connect.failed", err)
	}
	defer pubsubClient.Close()

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fatal("registry.build.failed", err)
	}

	r, err := relay.New(relay.Params{
		Logger:      logg,
		DB:          dbClient,
		Publisher:   pubsubClient,
		Events:      outbox.NewRepository(dbClient.DB()),
		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		Resolver:    events,
		Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Config:      cfg.Outbox,
	})
	if err != nil {
		return fatal("relay.init.failed", err)
	}

	logg.Info(logg.WithField(ctx, "topics", events.Topics()), "relay.starting")
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fatal("relay.stopped.unexpectedly", err)
	}
	return nil
}
