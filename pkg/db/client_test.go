package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type widget struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:db_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn
}

func countWidgets(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&widget{}).Count(&n).Error)
	return n
}

func TestRunCommitsOnSuccess(t *testing.T) {
	conn := openSQLite(t)
	err := Wrap(conn).Run(context.Background(), func(u *Unit) error {
		return u.Tx().Create(&widget{Name: "kept"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countWidgets(t, conn))
}

func TestRunRollsBackAndPassesErrorThrough(t *testing.T) {
	conn := openSQLite(t)
	boom := errors.New("boom")
	err := Wrap(conn).WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Name: "dropped"}).Error)
		return boom
	})
	assert.Same(t, boom, err)
	assert.Zero(t, countWidgets(t, conn))
}

func TestRunRollsBackOnPanic(t *testing.T) {
	conn := openSQLite(t)
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = Wrap(conn).Run(context.Background(), func(u *Unit) error {
			require.NoError(t, u.Tx().Create(&widget{Name: "panicked"}).Error)
			panic("kaboom")
		})
	})
	assert.Zero(t, countWidgets(t, conn))
}

func TestUnitRequire(t *testing.T) {
	var u *Unit
	_, err := u.Require("append")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransaction))

	err = Wrap(openSQLite(t)).Run(context.Background(), func(u *Unit) error {
		tx, err := u.Require("append")
		if err != nil {
			return err
		}
		assert.Same(t, tx, LockForUpdate(tx), "sqlite has no row locks")
		assert.False(t, IsPostgres(tx))
		return nil
	})
	require.NoError(t, err)
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	conn := openSQLite(t)
	require.NoError(t, conn.Create(&widget{Name: "dup"}).Error)
	err := conn.Create(&widget{Name: "dup"}).Error

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "widgets.name"))
	assert.False(t, IsUniqueViolation(errors.New("other"), ""))
}

func TestNewSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    "file:new_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))
	pool, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Stats().MaxOpenConnections)
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "sqlite"}, nil)
	require.Error(t, err)
}

func TestQueryLoggerFlagsSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: logger.ParseLevel("debug"), Output: &buf})
	ql := newQueryLogger(logg, time.Millisecond)

	ql.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Contains(t, buf.String(), `"message":"slow query"`)
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	ql.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 2", 0
	}, gorm.ErrRecordNotFound)
	assert.Contains(t, buf.String(), `"message":"query"`)
	assert.NotContains(t, buf.String(), "error")
}
