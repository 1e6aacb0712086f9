package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, db, base.DB(nil))
}

func TestBaseDBPrefersContextTransaction(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE counters (n INTEGER)`).Error)
	base := NewBase(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		ctx := InTx(context.Background(), tx)
		assert.Same(t, tx, base.DB(ctx))
		return base.DB(ctx).Exec(`INSERT INTO counters (n) VALUES (1)`).Error
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM counters`).Scan(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestTxFromEmptyContext(t *testing.T) {
	_, ok := TxFrom(context.Background())
	assert.False(t, ok)

	_, ok = TxFrom(InTx(context.Background(), nil))
	assert.False(t, ok)
}
