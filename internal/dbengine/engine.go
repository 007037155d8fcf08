// Package dbengine wraps a raw database/sql handle onto SQLite, providing
// scoped transactions, retry-on-busy writes, a prepared statement cache, and
// a row-change hook registry. GORM is deliberately not used here: it cannot
// expose sqlite3's update hook or let us hand-author the trigger/FTS5 DDL in
// internal/schema.
package dbengine

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/ashgrove/medialib/internal/logger"
)

// Reason identifies the kind of row change a hook fired for.
type Reason int

const (
	ReasonInsert Reason = iota
	ReasonUpdate
	ReasonDelete
)

func (r Reason) String() string {
	switch r {
	case ReasonInsert:
		return "insert"
	case ReasonUpdate:
		return "update"
	case ReasonDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// HookFunc is invoked on the writer connection's post-commit phase for a
// single row change on a registered table.
type HookFunc func(reason Reason, rowID int64)

// Engine owns the single writer connection to the SQLite database, a
// prepared-statement cache, and the row-change hook registry. Exactly one
// Engine should be open per database file: SQLite serializes writers, and
// the hook registry is keyed to the specific driver connection that
// RegisterUpdateHook is called on.
type Engine struct {
	db   *sql.DB
	path string

	maxRetries     int
	retryBaseDelay time.Duration

	stmtMu sync.Mutex
	stmts  map[string]*sql.Stmt

	hookMu sync.RWMutex
	hooks  map[string][]HookFunc

	driverConn *sqlite3.SQLiteConn
	connMu     sync.Mutex

	txMu    sync.Mutex
	inTx    bool
	pending []pendingChange

	writeMu sync.Mutex
	currentTx *Tx
}

// Option configures Open.
type Option func(*Engine)

// WithRetries overrides the default retry count and base backoff for
// write operations that hit "database is locked".
func WithRetries(maxRetries int, baseDelay time.Duration) Option {
	return func(e *Engine) {
		e.maxRetries = maxRetries
		e.retryBaseDelay = baseDelay
	}
}

// Open opens (creating if necessary) the SQLite database at path in WAL
// mode with foreign keys enabled, and installs a driver-level connect hook
// so the engine can later register row-change callbacks on the same
// physical connection used for writes.
func Open(ctx context.Context, path string, busyTimeout time.Duration, opts ...Option) (*Engine, error) {
	e := &Engine{
		path:           path,
		maxRetries:     3,
		retryBaseDelay: 50 * time.Millisecond,
		stmts:          make(map[string]*sql.Stmt),
		hooks:          make(map[string][]HookFunc),
	}
	for _, opt := range opts {
		opt(e)
	}

	driverName := fmt.Sprintf("medialib-sqlite3-%p", e)
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			e.connMu.Lock()
			e.driverConn = conn
			e.connMu.Unlock()
			return nil
		},
	})

	dsn := fmt.Sprintf(
		"%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=%d",
		path, busyTimeout.Milliseconds(),
	)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection keeps the row-change hook bound to the
	// connection the engine actually writes through.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	e.db = db
	e.installUpdateHook()
	return e, nil
}

// DB exposes the underlying handle for callers (internal/schema's
// migrations) that need to run raw DDL outside the retry/hook path.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Close releases all prepared statements and closes the connection.
func (e *Engine) Close() error {
	e.stmtMu.Lock()
	for _, stmt := range e.stmts {
		stmt.Close()
	}
	e.stmts = make(map[string]*sql.Stmt)
	e.stmtMu.Unlock()
	return e.db.Close()
}

// Prepare returns a cached prepared statement for query, preparing and
// caching it on first use.
func (e *Engine) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	e.stmtMu.Lock()
	defer e.stmtMu.Unlock()

	if stmt, ok := e.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := e.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	e.stmts[query] = stmt
	return stmt, nil
}

// isBusyErr reports whether err is SQLite's "database is locked"/"database
// is busy" condition.
func isBusyErr(err error) bool {
	sqliteErr, ok := err.(sqlite3.Error)
	if !ok {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// Retry runs fn up to the engine's configured retry count, with linear
// backoff, whenever fn returns a transient "database is locked" error.
// Any other error is returned immediately without retrying.
func (e *Engine) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isBusyErr(lastErr) {
			return lastErr
		}
		logger.Warn("transient database lock, retrying", logger.Int("attempt", attempt), logger.Err("error", lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryBaseDelay * time.Duration(attempt+1)):
		}
	}
	return lastErr
}
