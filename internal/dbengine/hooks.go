package dbengine

import (
	"github.com/mattn/go-sqlite3"
)

type pendingChange struct {
	reason Reason
	table  string
	rowID  int64
}

// installUpdateHook binds sqlite3's native update/commit/rollback hooks to
// the engine's single writer connection. SQLite's update hook fires as each
// row changes, not after commit, so changes made inside an explicit
// transaction are buffered and only dispatched to OnChange callbacks from
// the commit hook; a rollback discards the buffer. Changes made outside any
// transaction (autocommit) dispatch immediately.
func (e *Engine) installUpdateHook() {
	e.connMu.Lock()
	conn := e.driverConn
	e.connMu.Unlock()
	if conn == nil {
		return
	}

	conn.RegisterUpdateHook(func(op int, _ string, table string, rowID int64) {
		var reason Reason
		switch op {
		case sqlite3.SQLITE_INSERT:
			reason = ReasonInsert
		case sqlite3.SQLITE_UPDATE:
			reason = ReasonUpdate
		case sqlite3.SQLITE_DELETE:
			reason = ReasonDelete
		default:
			return
		}

		e.txMu.Lock()
		inTx := e.inTx
		if inTx {
			e.pending = append(e.pending, pendingChange{reason: reason, table: table, rowID: rowID})
			e.txMu.Unlock()
			return
		}
		e.txMu.Unlock()

		e.dispatch(reason, table, rowID)
	})

	conn.RegisterCommitHook(func() int {
		e.txMu.Lock()
		changes := e.pending
		e.pending = nil
		e.inTx = false
		e.txMu.Unlock()

		for _, c := range changes {
			e.dispatch(c.reason, c.table, c.rowID)
		}
		return 0
	})

	conn.RegisterRollbackHook(func() {
		e.txMu.Lock()
		e.pending = nil
		e.inTx = false
		e.txMu.Unlock()
	})
}

func (e *Engine) dispatch(reason Reason, table string, rowID int64) {
	e.hookMu.RLock()
	callbacks := append([]HookFunc(nil), e.hooks[table]...)
	e.hookMu.RUnlock()

	for _, cb := range callbacks {
		cb(reason, rowID)
	}
}

// OnChange registers a callback invoked for every insert/update/delete on
// table, after the enclosing transaction (if any) commits. Callbacks
// accumulate; there is no unregister, matching the register-once-at-startup
// lifecycle of internal/store's per-entity repositories.
func (e *Engine) OnChange(table string, fn HookFunc) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	e.hooks[table] = append(e.hooks[table], fn)
}
