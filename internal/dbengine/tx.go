package dbengine

import (
	"context"
	"database/sql"
)

// Tx is a scoped transaction handle. It auto-rolls-back if released without
// an explicit commit, and nested WithTx calls on the same Engine share the
// outermost transaction rather than opening a new one.
type Tx struct {
	tx     *sql.Tx
	engine *Engine
}

// Exec runs a write statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query runs a read statement inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row read statement inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// WithTx runs fn inside a transaction: on a nil error return the
// transaction commits, on a non-nil error it rolls back and the error
// propagates. Calling WithTx again while already inside one (same
// goroutine, re-entrant call through the same Engine) reuses the
// outstanding transaction instead of nesting a second BeginTx — exactly one
// media's derivation step is meant to be one transaction.
func (e *Engine) WithTx(ctx context.Context, fn func(*Tx) error) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.currentTx != nil {
		return fn(e.currentTx)
	}

	var sqlTx *sql.Tx
	err := e.Retry(ctx, func() error {
		var beginErr error
		sqlTx, beginErr = e.db.BeginTx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return err
	}

	e.txMu.Lock()
	e.inTx = true
	e.txMu.Unlock()

	tx := &Tx{tx: sqlTx, engine: e}
	e.currentTx = tx
	defer func() { e.currentTx = nil }()

	if ferr := fn(tx); ferr != nil {
		_ = sqlTx.Rollback()
		return ferr
	}
	return sqlTx.Commit()
}

// Exec runs a write statement outside any explicit transaction
// (autocommit), retrying on a transient database lock.
func (e *Engine) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := e.Retry(ctx, func() error {
		var execErr error
		result, execErr = e.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return result, err
}

// Query runs a read statement against the engine directly.
func (e *Engine) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return e.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row read statement against the engine directly.
func (e *Engine) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return e.db.QueryRowContext(ctx, query, args...)
}
