package dbtest

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/migrate"
)

// PostgresURLEnv names the database integration tests run against.
const PostgresURLEnv = "TEST_DATABASE_URL"

// Postgres returns a client bound to a fresh schema on the database named by
// TEST_DATABASE_URL, migrated with the shipped goose files. The test is skipped
// when the variable is unset. The schema is dropped on cleanup, so packages can
// share one server without stepping on each other.
func Postgres(t testing.TB) *db.Client {
	t.Helper()

	base := strings.TrimSpace(os.Getenv(PostgresURLEnv))
	if base == "" {
		t.Skip(PostgresURLEnv + " not set, skipping postgres integration test")
	}
	ctx := context.Background()

	admin, err := db.New(ctx, config.DBConfig{DSN: base, Driver: "postgres", MaxOpenConns: 2}, logger.Nop())
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })

	schema := "kardex_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := admin.DB().WithContext(ctx).Exec("CREATE SCHEMA " + schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_ = admin.DB().Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Error
	})

	client, err := db.New(ctx, config.DBConfig{
		DSN:          withSearchPath(t, base, schema),
		Driver:       "postgres",
		MaxOpenConns: 32,
		MaxIdleConns: 32,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("connect schema %s: %v", schema, err)
	}
	t.Cleanup(func() { _ = client.Close() })

	pool, err := client.DB().DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	migrator, err := migrate.NewMigrator(pool, migrate.Embedded(), logger.Nop())
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	return client
}

// withSearchPath pins every pooled connection to schema. Both URL and
// keyword/value DSNs are accepted.
func withSearchPath(t testing.TB, dsn, schema string) string {
	t.Helper()
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %s: %v", PostgresURLEnv, err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
