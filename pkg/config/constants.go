package config

const (
	EnvPrefix = "LIFTBOOKS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:liftbooks.db?cache=shared&_fk=1"
)

const (
	EnvAppEnv      = "LIFTBOOKS_APP_ENV"
	EnvPort        = "LIFTBOOKS_APP_PORT"
	EnvLogLevel    = "LIFTBOOKS_LOG_LEVEL"
	EnvCORSOrigins = "LIFTBOOKS_CORS_ORIGINS"

	EnvDBDSN    = "LIFTBOOKS_DB_DSN"
	EnvDBDriver = "LIFTBOOKS_DB_DRIVER"
	EnvDBHost   = "LIFTBOOKS_DB_HOST"
	EnvDBPort   = "LIFTBOOKS_DB_PORT"
	EnvDBUser   = "LIFTBOOKS_DB_USER"
	EnvDBPass   = "LIFTBOOKS_DB_PASSWORD"
	EnvDBName   = "LIFTBOOKS_DB_NAME"

	EnvRedisURL  = "LIFTBOOKS_REDIS_URL"
	EnvUseSQLite = "LIFTBOOKS_USE_SQLITE"

	EnvBillingCurrency       = "LIFTBOOKS_BILLING_CURRENCY"
	EnvBillingInvoiceDueDays = "LIFTBOOKS_BILLING_INVOICE_DUE_DAYS"
	EnvBillingCronInterval   = "LIFTBOOKS_BILLING_CRON_INTERVAL"
	EnvBillingBatchSize      = "LIFTBOOKS_BILLING_BATCH_SIZE"
	EnvBillingMaxCatchUp     = "LIFTBOOKS_BILLING_MAX_CATCH_UP"

	EnvGCPProjectID        = "LIFTBOOKS_GCP_PROJECT_ID"
	EnvPubSubBillingTopic  = "LIFTBOOKS_PUBSUB_BILLING_TOPIC"
	EnvPubSubBillingSub    = "LIFTBOOKS_PUBSUB_BILLING_SUBSCRIPTION"
	EnvOutboxRetentionDays = "LIFTBOOKS_OUTBOX_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
