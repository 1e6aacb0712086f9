package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/pkg/config"
)

func configWithDriver(driver string) config.DBConfig {
	return config.DBConfig{DSN: "file::memory:", Driver: driver}
}

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&testModel{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))
	assert.EqualValues(t, 1, countRows(t, db))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&testModel{Name: "rolled"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, countRows(t, db), "failed tx must leave no rows behind")
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	assert.PanicsWithValue(t, "mid-tx", func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&testModel{Name: "lost"}).Error)
			panic("mid-tx")
		})
	})
	assert.Zero(t, countRows(t, db))
}

func TestPing(t *testing.T) {
	assert.NoError(t, Wrap(newTestDB(t)).Ping(context.Background()))
}

func TestForUpdateIsNoopOnSQLite(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&testModel{Name: "row"}).Error)

	var got testModel
	require.NoError(t, ForUpdate(db).First(&got, "name = ?", "row").Error)
	assert.Equal(t, "row", got.Name)
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_attendance_open_per_user"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"wrapped pg violation", fmt.Errorf("insert: %w", pgErr), "ux_attendance_open_per_user", true},
		{"pg constraint mismatch", pgErr, "users_email_key", false},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, "", false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: skill_acquisitions.user_id"), "ux_skill_acquisition", true},
		{"plain duplicate text", errors.New("ERROR: duplicate key value violates unique constraint"), "", true},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	db := newTestDB(t)
	var m testModel
	err := db.First(&m, "name = ?", "missing").Error
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", err)))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestNewHoldsSQLiteToOneConnection(t *testing.T) {
	cfg := configWithDriver(DriverSQLite)
	cfg.MaxOpenConns = 8

	client, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	pool, err := client.pool()
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Stats().MaxOpenConnections)
}
