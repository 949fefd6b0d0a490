package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/liftbooks-backend/api/controllers"
	"github.com/angelmondragon/liftbooks-backend/api/middleware"
	"github.com/angelmondragon/liftbooks-backend/internal/customers"
	"github.com/angelmondragon/liftbooks-backend/internal/invoices"
	"github.com/angelmondragon/liftbooks-backend/internal/items"
	"github.com/angelmondragon/liftbooks-backend/internal/profiles"
	"github.com/angelmondragon/liftbooks-backend/pkg/config"
	"github.com/angelmondragon/liftbooks-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/liftbooks-backend/pkg/redis"
)

// Deps carries everything the router hands to controllers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Customers   customers.Service
	Items       items.Service
	Profiles    profiles.Service
	Invoices    invoices.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Eventing.IdempotencyTTL, logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(deps.Customers, logg))
			r.Post("/", controllers.CustomerCreate(deps.Customers, logg))
			r.Get("/{customerId}", controllers.CustomerDetail(deps.Customers, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemList(deps.Items, logg))
			r.Post("/", controllers.ItemCreate(deps.Items, logg))
		})

		r.Route("/recurring-profiles", func(r chi.Router) {
			r.Get("/", controllers.RecurringProfileList(deps.Profiles, logg))
			r.Post("/", controllers.RecurringProfileCreate(deps.Profiles, logg))
			r.Route("/{profileId}", func(r chi.Router) {
				r.Get("/", controllers.RecurringProfileDetail(deps.Profiles, logg))
				r.Put("/", controllers.RecurringProfileUpdate(deps.Profiles, logg))
				r.Delete("/", controllers.RecurringProfileDelete(deps.Profiles, logg))
				r.Post("/cancel", controllers.RecurringProfileCancel(deps.Profiles, logg))
				r.Get("/invoices", controllers.RecurringProfileInvoices(deps.Invoices, logg))
				r.Post("/generate", controllers.RecurringProfileGenerate(deps.Invoices, logg))
			})
		})
	})

	return r
}
