// Package sqlitetest opens throwaway sqlite databases carrying the
// application schema, for repository and service tests.
package sqlitetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	"github.com/shota3227/ludi/pkg/migrate"
)

// Open returns a fresh database with every table created and foreign keys
// enforced. Each call gets its own named in-memory database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	// single connection: statements inside and outside transactions share one database
	return open(t, dsn, 1)
}

// OpenFile returns a database in a temporary file served by a pool of
// connections, for tests that run operations from several goroutines.
// Transactions begin IMMEDIATE, so writers queue on the database lock the way
// they queue on row locks in postgres.
func OpenFile(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ludi.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", path)
	return open(t, dsn, conns)
}

func open(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLite(context.Background(), sqlDB))
	return db
}

// Store inserts an active store.
func Store(t *testing.T, db *gorm.DB, name string) *models.Store {
	t.Helper()
	now := time.Now().UTC()
	store := &models.Store{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Name:           name,
		Code:           "S-" + uuid.NewString()[:8],
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

// UserOption tweaks a fixture user before insert.
type UserOption func(*models.User)

func WithRole(role enums.UserRole) UserOption {
	return func(u *models.User) { u.Role = role }
}

func WithRank(rank int) UserOption {
	return func(u *models.User) { u.Rank = rank }
}

func WithAuthID(authID string) UserOption {
	return func(u *models.User) { u.AuthID = &authID }
}

func WithoutAuthID() UserOption {
	return func(u *models.User) { u.AuthID = nil }
}

func Inactive() UserOption {
	return func(u *models.User) { u.IsActive = false }
}

// User inserts an active staff user linked to store, with a random auth id.
func User(t *testing.T, db *gorm.DB, store *models.Store, nickname string, opts ...UserOption) *models.User {
	t.Helper()
	now := time.Now().UTC()
	authID := "auth-" + uuid.NewString()
	user := &models.User{
		ID:        uuid.New(),
		AuthID:    &authID,
		Email:     nickname + "-" + uuid.NewString()[:8] + "@example.com",
		Name:      nickname,
		Nickname:  nickname,
		Role:      enums.UserRoleStaff,
		AvatarID:  models.DefaultAvatarID,
		Rank:      1,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if store != nil {
		user.PrimaryStoreID = &store.ID
	}
	for _, opt := range opts {
		opt(user)
	}
	// Create skips zero-valued bools with a default tag; force inactive users.
	require.NoError(t, db.Create(user).Error)
	if !user.IsActive {
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	}
	return user
}
