package config

const (
	EnvPrefix = "KARDEX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "KARDEX_APP_ENV"
	EnvPort         = "KARDEX_APP_PORT"
	EnvLogLevel     = "KARDEX_LOG_LEVEL"
	EnvLogWarnStack = "KARDEX_LOG_WARN_STACK"
	EnvTimezone     = "KARDEX_TIMEZONE"

	EnvDBDSN      = "KARDEX_DB_DSN"
	EnvDBDriver   = "KARDEX_DB_DRIVER"
	EnvDBHost     = "KARDEX_DB_HOST"
	EnvDBPort     = "KARDEX_DB_PORT"
	EnvDBUser     = "KARDEX_DB_USER"
	EnvDBPassword = "KARDEX_DB_PASSWORD"
	EnvDBName     = "KARDEX_DB_NAME"
	EnvDBSSLMode  = "KARDEX_DB_SSLMODE"

	EnvRedisURL = "KARDEX_REDIS_URL"

	EnvJWTSecret  = "KARDEX_JWT_SECRET"
	EnvJWTIssuer  = "KARDEX_JWT_ISSUER"
	EnvJWTExpMins = "KARDEX_JWT_EXPIRATION_MINUTES"

	EnvAutoMigrate = "KARDEX_AUTO_MIGRATE"
	EnvRequireAuth = "KARDEX_REQUIRE_AUTH"

	EnvGCPProjectID = "KARDEX_GCP_PROJECT_ID"

	EnvPubSubSalesTopic       = "KARDEX_PUBSUB_SALES_TOPIC"
	EnvPubSubInventoryTopic   = "KARDEX_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubAnalyticsSub     = "KARDEX_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvBigQueryDataset        = "KARDEX_BIGQUERY_DATASET"
	EnvInvoiceMaxAttempts     = "KARDEX_INVOICE_MAX_ATTEMPTS"
	EnvOutboxRetentionDays    = "KARDEX_OUTBOX_RETENTION_DAYS"
	EnvEventingIdempotencyTTL = "KARDEX_EVENTING_IDEMPOTENCY_TTL"
	EnvMetricsAddr            = "KARDEX_METRICS_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
