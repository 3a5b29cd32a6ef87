package dbx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "dbx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT, at TEXT);`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('fail')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 0, countRows(t, db), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countRows(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('panic')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "", Placeholders(0))
	require.Equal(t, "?", Placeholders(1))
	require.Equal(t, "?, ?, ?", Placeholders(3))
}

func TestTimeRoundTrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.FixedZone("X", 3600))
	_, err := db.ExecContext(ctx, `INSERT INTO t(id, v, at) VALUES (1, 'a', ?), (2, 'b', ?)`, TimeArg(at), NullTimeArg(nil))
	require.NoError(t, err)

	var got time.Time
	require.NoError(t, db.QueryRowContext(ctx, `SELECT at FROM t WHERE id = 1`).Scan(ScanTime(&got)))
	require.True(t, at.Equal(got))
	require.Equal(t, time.UTC, got.Location())

	var missing *time.Time
	require.NoError(t, db.QueryRowContext(ctx, `SELECT at FROM t WHERE id = 2`).Scan(ScanNullTime(&missing)))
	require.Nil(t, missing)

	var bad time.Time
	require.Error(t, db.QueryRowContext(ctx, `SELECT at FROM t WHERE id = 2`).Scan(ScanTime(&bad)))
}

func TestTimeArg_SortsLexicographically(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 100, time.UTC)
	b := time.Date(2024, 1, 1, 0, 0, 0, 9, time.UTC).Add(time.Second)
	require.Less(t, TimeArg(a), TimeArg(b))
}
