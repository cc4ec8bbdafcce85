package repositories

import (
	"context"

	"gorm.io/gorm"
)

type sessionKey struct{}

// WithSession pins db as the connection for every repository call made
// with the returned context.
func WithSession(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, sessionKey{}, db)
}

// conn returns the pinned session or transaction in ctx, or fallback
func conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if db, ok := ctx.Value(sessionKey{}).(*gorm.DB); ok && db != nil {
		return db.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

// Transactor runs a unit of work in one database transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor on db
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// WithinTx begins a transaction on the request's connection, commits when
// fn returns nil and rolls back otherwise. Repositories called with the
// context passed to fn join the transaction.
func (t *gormTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(WithSession(ctx, tx))
	})
}
