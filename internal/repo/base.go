// Package repo holds the shared plumbing for gorm-backed repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// InTx returns ctx carrying tx. Repositories reached with that ctx run their
// statements inside tx instead of on their own connection.
func InTx(ctx context.Context, tx *gorm.DB) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom returns the transaction carried by ctx, if any.
func TxFrom(ctx context.Context) (*gorm.DB, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// Base is embedded by domain repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle to run a statement on: the ctx transaction when one
// is present, otherwise the base connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
