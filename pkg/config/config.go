package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Billing      BillingConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"LIFTBOOKS_APP_ENV" required:"true"`
	Port         string   `envconfig:"LIFTBOOKS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"LIFTBOOKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"LIFTBOOKS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"LIFTBOOKS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LIFTBOOKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LIFTBOOKS_DB_DSN"`
	Driver string `envconfig:"LIFTBOOKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIFTBOOKS_DB_HOST"`
	LegacyPort     int    `envconfig:"LIFTBOOKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIFTBOOKS_DB_USER"`
	LegacyPassword string `envconfig:"LIFTBOOKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIFTBOOKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIFTBOOKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIFTBOOKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIFTBOOKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIFTBOOKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIFTBOOKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"LIFTBOOKS_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIFTBOOKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIFTBOOKS_REDIS_ADDR"`
	Password     string        `envconfig:"LIFTBOOKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIFTBOOKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIFTBOOKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIFTBOOKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIFTBOOKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIFTBOOKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIFTBOOKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LIFTBOOKS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LIFTBOOKS_AUTO_MIGRATE" default:"false"`
}

// BillingConfig drives invoice numbering, amounts and the invoicing cron cadence.
type BillingConfig struct {
	Currency       string        `envconfig:"LIFTBOOKS_BILLING_CURRENCY" default:"INR"`
	InvoiceDueDays int           `envconfig:"LIFTBOOKS_BILLING_INVOICE_DUE_DAYS" default:"15"`
	CronInterval   time.Duration `envconfig:"LIFTBOOKS_BILLING_CRON_INTERVAL" default:"24h"`
	BatchSize      int           `envconfig:"LIFTBOOKS_BILLING_BATCH_SIZE" default:"100"`
	MaxCatchUp     int           `envconfig:"LIFTBOOKS_BILLING_MAX_CATCH_UP" default:"12"`
}

func (b BillingConfig) validate() error {
	if strings.TrimSpace(b.Currency) == "" {
		return fmt.Errorf("%s must not be empty", EnvBillingCurrency)
	}
	if b.InvoiceDueDays < 0 {
		return fmt.Errorf("%s must be >= 0", EnvBillingInvoiceDueDays)
	}
	if b.BatchSize <= 0 {
		return fmt.Errorf("%s must be > 0", EnvBillingBatchSize)
	}
	if b.MaxCatchUp <= 0 {
		return fmt.Errorf("%s must be > 0", EnvBillingMaxCatchUp)
	}
	return nil
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"LIFTBOOKS_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LIFTBOOKS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LIFTBOOKS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LIFTBOOKS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BillingTopic        string `envconfig:"LIFTBOOKS_PUBSUB_BILLING_TOPIC" required:"true"`
	BillingSubscription string `envconfig:"LIFTBOOKS_PUBSUB_BILLING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LIFTBOOKS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LIFTBOOKS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LIFTBOOKS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"LIFTBOOKS_OUTBOX_RETENTION_DAYS" default:"30"`
}

// PollInterval returns the publisher poll cadence as a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite || strings.EqualFold(db.Driver, DBDriverSQLite) {
		db.Driver = DBDriverSQLite
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
