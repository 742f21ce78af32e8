package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Sales        SalesConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KARDEX_APP_ENV" required:"true"`
	Port         string `envconfig:"KARDEX_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"KARDEX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KARDEX_LOG_WARN_STACK" default:"false"`
	Timezone     string `envconfig:"KARDEX_TIMEZONE" default:"UTC"`

	// CORSOrigins is a comma separated list; empty disables CORS handling.
	CORSOrigins []string `envconfig:"KARDEX_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the business timezone used for invoice dates and daily totals.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimezone, name, err)
	}
	return loc, nil
}

type DBConfig struct {
	DSN    string `envconfig:"KARDEX_DB_DSN"`
	Driver string `envconfig:"KARDEX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KARDEX_DB_HOST"`
	LegacyPort     int    `envconfig:"KARDEX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KARDEX_DB_USER"`
	LegacyPassword string `envconfig:"KARDEX_DB_PASSWORD"`
	LegacyName     string `envconfig:"KARDEX_DB_NAME"`
	LegacySSLMode  string `envconfig:"KARDEX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KARDEX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KARDEX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KARDEX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KARDEX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"KARDEX_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"KARDEX_REDIS_URL"`
	Address      string        `envconfig:"KARDEX_REDIS_ADDR"`
	Password     string        `envconfig:"KARDEX_REDIS_PASSWORD"`
	DB           int           `envconfig:"KARDEX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KARDEX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KARDEX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KARDEX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KARDEX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KARDEX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"KARDEX_JWT_SECRET"`
	Issuer            string `envconfig:"KARDEX_JWT_ISSUER" default:"kardex-pos"`
	ExpirationMinutes int    `envconfig:"KARDEX_JWT_EXPIRATION_MINUTES" default:"720"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KARDEX_AUTO_MIGRATE" default:"false"`
	RequireAuth bool `envconfig:"KARDEX_REQUIRE_AUTH" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"KARDEX_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type SalesConfig struct {
	InvoiceMaxAttempts int `envconfig:"KARDEX_INVOICE_MAX_ATTEMPTS" default:"100"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KARDEX_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KARDEX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KARDEX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SalesTopic            string `envconfig:"KARDEX_PUBSUB_SALES_TOPIC" default:"kardex-sales-events"`
	InventoryTopic        string `envconfig:"KARDEX_PUBSUB_INVENTORY_TOPIC" default:"kardex-inventory-events"`
	AnalyticsSubscription string `envconfig:"KARDEX_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"kardex-analytics-sub"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"KARDEX_BIGQUERY_DATASET" default:"kardex"`
	SaleFactsTable     string `envconfig:"KARDEX_BIGQUERY_SALE_FACTS_TABLE" default:"sale_facts"`
	MovementFactsTable string `envconfig:"KARDEX_BIGQUERY_MOVEMENT_FACTS_TABLE" default:"stock_movement_facts"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KARDEX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KARDEX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KARDEX_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"KARDEX_OUTBOX_RETENTION_DAYS" default:"30"`
}

// MetricsConfig controls the standalone /metrics listener used by the workers.
// An empty address disables it.
type MetricsConfig struct {
	Addr string `envconfig:"KARDEX_METRICS_ADDR"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"KARDEX_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"KARDEX_CRON_LOCK_TTL" default:"55m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=sqlite", EnvDBDSN, EnvDBDriver)
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
