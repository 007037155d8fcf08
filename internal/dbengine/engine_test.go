package dbengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	eng, err := Open(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	_, err = eng.Exec(context.Background(), `CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	return eng
}

func TestWithTxCommitsAndFiresHookAfterCommit(t *testing.T) {
	eng := openTestEngine(t)

	var fired []Reason
	eng.OnChange("widgets", func(reason Reason, rowID int64) {
		fired = append(fired, reason)
	})

	err := eng.WithTx(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec(context.Background(), `INSERT INTO widgets (name) VALUES (?)`, "gear")
		return err
	})
	require.NoError(t, err)
	require.Len(t, fired, 1)
	require.Equal(t, ReasonInsert, fired[0])
}

func TestWithTxRollbackDiscardsHooks(t *testing.T) {
	eng := openTestEngine(t)

	var fired int
	eng.OnChange("widgets", func(reason Reason, rowID int64) {
		fired++
	})

	err := eng.WithTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.Exec(context.Background(), `INSERT INTO widgets (name) VALUES (?)`, "gear"); err != nil {
			return err
		}
		return errIntentional
	})
	require.Error(t, err)
	require.Equal(t, 0, fired)

	var count int
	require.NoError(t, eng.QueryRow(context.Background(), `SELECT COUNT(*) FROM widgets`).Scan(&count))
	require.Equal(t, 0, count)
}

func TestNestedWithTxSharesOutermost(t *testing.T) {
	eng := openTestEngine(t)

	err := eng.WithTx(context.Background(), func(outer *Tx) error {
		return eng.WithTx(context.Background(), func(inner *Tx) error {
			_, err := inner.Exec(context.Background(), `INSERT INTO widgets (name) VALUES (?)`, "nested")
			return err
		})
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, eng.QueryRow(context.Background(), `SELECT COUNT(*) FROM widgets`).Scan(&count))
	require.Equal(t, 1, count)
}

var errIntentional = &testError{"intentional rollback"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
