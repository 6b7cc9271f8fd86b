package utils

import (
	"context"
	"database/sql"
)

type txCtxKey struct{}

// Transactor runs a unit of work atomically. Repositories that resolve their
// connection through Conn join the transaction carried by ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLTransactor is the database/sql Transactor.
type SQLTransactor struct {
	DB *sql.DB
}

func NewSQLTransactor(db *sql.DB) *SQLTransactor { return &SQLTransactor{DB: db} }

// InTx starts a transaction unless ctx already carries one, in which case fn
// joins the outer transaction.
func (t *SQLTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}
	return WithTx(ctx, t.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txCtxKey{}, tx))
	})
}

// NoopTransactor runs fn directly. Used with in-memory repositories.
type NoopTransactor struct{}

func (NoopTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// TxFrom returns the transaction carried by ctx, if any.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Conn returns the transaction in ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}
