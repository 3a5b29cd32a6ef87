package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/dbx"
)

// Table holds one row per preference key.
const Table = "preferences"

// SQLiteRepository stores preferences in the local database, stamping each
// write with its time.
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM `+Table+` WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get preference %q: %w", key, err)
	case value == nil:
		// an empty blob scans as nil; only a missing key is nil
		return []byte{}, nil
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+Table+` (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, dbx.TimeArg(r.now()))
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// Delete removes keys in one statement.
func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM `+Table+` WHERE key IN (`+dbx.Placeholders(len(keys))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete preferences %q: %w", keys, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM `+Table)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return out, nil
}

// UpdatedAt reports when key was last written; ok is false when missing.
func (r *SQLiteRepository) UpdatedAt(ctx context.Context, key string) (t time.Time, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT updated_at FROM `+Table+` WHERE key = ?`, key).Scan(dbx.ScanTime(&t))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return t, true, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+Table); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	return nil
}

// GetString reads a text value; ok is false when the key is missing.
func GetString(ctx context.Context, r Repository, key string) (value string, ok bool, err error) {
	b, err := r.Get(ctx, key)
	if err != nil || b == nil {
		return "", false, err
	}
	return string(b), true, nil
}

func SetString(ctx context.Context, r Repository, key, value string) error {
	return r.Set(ctx, key, []byte(value))
}

// GetJSON decodes the value under key into v; ok is false when missing.
func GetJSON(ctx context.Context, r Repository, key string, v any) (ok bool, err error) {
	b, err := r.Get(ctx, key)
	if err != nil || b == nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode preference %q: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode preference %q: %w", key, err)
	}
	return r.Set(ctx, key, b)
}
