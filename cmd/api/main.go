package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/liftbooks-backend/api/routes"
	"github.com/angelmondragon/liftbooks-backend/internal/customers"
	"github.com/angelmondragon/liftbooks-backend/internal/invoices"
	"github.com/angelmondragon/liftbooks-backend/internal/items"
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

const (
	serviceName       = "api"
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
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
	addr := listenAddr(cfg)
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr, "instance": instance.GetID()})
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

	deps, err := buildDeps(cfg, logg, dbClient, redisClient)
	if err != nil {
		return fatal("api.init.failed", err)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "api.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api.shutdown")
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		return fatal("api.stopped.unexpectedly", err)
	}
	logg.Info(ctx, "api.stopped")
	return nil
}

// listenAddr prefers the platform-assigned PORT over the configured one.
func listenAddr(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + cfg.App.Port
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Deps, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	customerRepo := customers.NewRepository(conn)
	itemRepo := items.NewRepository(conn)
	profileRepo := profiles.NewRepository(conn)

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    prometheus.DefaultGatherer,
	}
	var err error
	if deps.Customers, err = customers.NewService(customerRepo); err != nil {
		return deps, err
	}
	if deps.Items, err = items.NewService(itemRepo); err != nil {
		return deps, err
	}
	if deps.Profiles, err = profiles.NewService(profiles.Deps{
		Repo:      profileRepo,
		Customers: customerRepo,
		Items:     itemRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		Currency:  cfg.Billing.Currency,
	}); err != nil {
		return deps, err
	}
	deps.Invoices, err = invoices.NewService(invoices.Deps{
		Invoices:       invoices.NewRepository(conn),
		Profiles:       profileRepo,
		Tx:             dbClient,
		Outbox:         emitter,
		Metrics:        metrics.NewBillingMetrics(prometheus.DefaultRegisterer),
		Currency:       cfg.Billing.Currency,
		InvoiceDueDays: cfg.Billing.InvoiceDueDays,
	})
	return deps, err
}
