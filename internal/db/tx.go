package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx so store helpers can run
// inside or outside a transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx starts a transaction, runs fn, and commits if fn returns nil.
// If fn returns an error (or panics) the transaction is rolled back.
//
//	err := db.WithTx(ctx, dbh, func(tx *sql.Tx) error {
//	    // use tx.ExecContext / tx.QueryContext ...
//	    return nil
//	})
func WithTx(ctx context.Context, dbh *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := dbh.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("db: commit: %w", e)
		}
	}()
	err = fn(tx)
	return
}
