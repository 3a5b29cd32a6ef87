package syncable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/dbx"
	"github.com/google/uuid"
)

// Ptr constrains P to *T where *T embeds models.Meta.
type Ptr[T any] interface {
	*T
	models.Record
}

// Schema describes the entity-specific part of a table. Values and Fields
// must list the same columns in Columns order.
type Schema[T any] struct {
	Table   string
	Columns []string
	// Values returns the column arguments for an insert.
	Values func(rec *T) []any
	// Fields returns scan destinations into rec.
	Fields func(rec *T) []any
}

var metaColumns = []string{"id", "sync_status", "created_at", "updated_at", "deleted_at"}

// idChunk bounds the number of bound parameters per IN clause.
const idChunk = 500

// SQLiteRepository is the SQLite implementation of Repository.
type SQLiteRepository[T any, P Ptr[T]] struct {
	db     *sql.DB
	schema Schema[T]
	clock  Clock

	selectSQL string
	upsertSQL string
}

func NewSQLiteRepository[T any, P Ptr[T]](db *sql.DB, schema Schema[T], clock Clock) *SQLiteRepository[T, P] {
	if clock == nil {
		clock = SystemClock
	}

	cols := append(append([]string{}, metaColumns...), schema.Columns...)

	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, c+" = excluded."+c)
	}

	return &SQLiteRepository[T, P]{
		db:        db,
		schema:    schema,
		clock:     clock,
		selectSQL: "SELECT " + strings.Join(cols, ", ") + " FROM " + schema.Table,
		upsertSQL: "INSERT INTO " + schema.Table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
			dbx.Placeholders(len(cols)) + ") ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", "),
	}
}

// DB exposes the underlying handle so entity repositories can open
// transactions spanning their own queries.
func (r *SQLiteRepository[T, P]) DB() *sql.DB { return r.db }

// Table returns the table name.
func (r *SQLiteRepository[T, P]) Table() string { return r.schema.Table }

// Now returns the repository clock reading.
func (r *SQLiteRepository[T, P]) Now() time.Time { return r.clock() }

func (r *SQLiteRepository[T, P]) Save(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range records {
			rec := records[i]
			if err := r.Upsert(ctx, tx, &rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", r.schema.Table, err)
	}
	return nil
}

// Upsert writes one record using q, filling in defaults for missing
// metadata.
func (r *SQLiteRepository[T, P]) Upsert(ctx context.Context, q dbx.DBTX, rec *T) error {
	m := P(rec).RecordMeta()
	if m.ID == uuid.Nil {
		return fmt.Errorf("%w: %s record without id", common.ErrPrecondition, r.schema.Table)
	}
	if m.SyncStatus == "" {
		m.SyncStatus = models.SyncStatusPending
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.clock()
	}
	if m.UpdatedAt.Before(m.CreatedAt) {
		m.UpdatedAt = m.CreatedAt
	}

	args := append([]any{
		m.ID.String(),
		string(m.SyncStatus),
		dbx.TimeArg(m.CreatedAt),
		dbx.TimeArg(m.UpdatedAt),
		dbx.NullTimeArg(m.DeletedAt),
	}, r.schema.Values(rec)...)

	if _, err := q.ExecContext(ctx, r.upsertSQL, args...); err != nil {
		return fmt.Errorf("upsert %s[%s]: %w", r.schema.Table, m.ID, err)
	}
	return nil
}

// Query returns records matching the optional where clause (including any
// ORDER BY), read through q.
func (r *SQLiteRepository[T, P]) Query(ctx context.Context, q dbx.DBTX, where string, args ...any) ([]T, error) {
	query := r.selectSQL
	if where != "" {
		query += " " + where
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.schema.Table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var rec T
		m := P(&rec).RecordMeta()
		var status string
		dest := append([]any{
			&m.ID,
			&status,
			dbx.ScanTime(&m.CreatedAt),
			dbx.ScanTime(&m.UpdatedAt),
			dbx.ScanNullTime(&m.DeletedAt),
		}, r.schema.Fields(&rec)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.schema.Table, err)
		}
		m.SyncStatus = models.SyncStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.schema.Table, err)
	}
	return out, nil
}

func (r *SQLiteRepository[T, P]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.GetTx(ctx, r.db, id)
}

// GetTx reads one record through q; it returns common.ErrNotFound when absent.
func (r *SQLiteRepository[T, P]) GetTx(ctx context.Context, q dbx.DBTX, id uuid.UUID) (*T, error) {
	recs, err := r.Query(ctx, q, "WHERE id = ?", id.String())
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s[%s]: %w", r.schema.Table, id, common.ErrNotFound)
	}
	return &recs[0], nil
}

func (r *SQLiteRepository[T, P]) RecordsWithSyncStatus(ctx context.Context, status models.SyncStatus) ([]T, error) {
	return r.Query(ctx, r.db, "WHERE sync_status = ? ORDER BY created_at, id", string(status))
}

func (r *SQLiteRepository[T, P]) SetSyncStatus(ctx context.Context, from, to models.SyncStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE "+r.schema.Table+" SET sync_status = ? WHERE sync_status = ?", string(to), string(from))
	if err != nil {
		return fmt.Errorf("set %s status %s -> %s: %w", r.schema.Table, from, to, err)
	}
	return nil
}

func (r *SQLiteRepository[T, P]) SetSyncStatusForIDs(ctx context.Context, ids []uuid.UUID, to models.SyncStatus) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: set %s status to %s with empty id set", common.ErrPrecondition, r.schema.Table, to)
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for start := 0; start < len(ids); start += idChunk {
			end := min(start+idChunk, len(ids))
			chunk := ids[start:end]

			args := make([]any, 0, len(chunk)+1)
			args = append(args, string(to))
			for _, id := range chunk {
				args = append(args, id.String())
			}

			q := "UPDATE " + r.schema.Table + " SET sync_status = ? WHERE id IN (" + dbx.Placeholders(len(chunk)) + ")"
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s status to %s: %w", r.schema.Table, to, err)
	}
	return nil
}

func (r *SQLiteRepository[T, P]) MergeWithRemote(ctx context.Context, payloads []T) error {
	if len(payloads) == 0 {
		return nil
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range payloads {
			rec := payloads[i]
			m := P(&rec).RecordMeta()

			local, err := r.statusOf(ctx, tx, m.ID)
			if err != nil {
				return err
			}
			if !CanBeOverriddenByServerCopy(local) {
				continue
			}

			m.SyncStatus = models.SyncStatusDone
			if err := r.Upsert(ctx, tx, &rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("merge %s: %w", r.schema.Table, err)
	}
	return nil
}

func (r *SQLiteRepository[T, P]) statusOf(ctx context.Context, q dbx.DBTX, id uuid.UUID) (*models.SyncStatus, error) {
	var s string
	err := q.QueryRowContext(ctx, "SELECT sync_status FROM "+r.schema.Table+" WHERE id = ?", id.String()).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s[%s] status: %w", r.schema.Table, id, err)
	}
	status := models.SyncStatus(s)
	return &status, nil
}

func (r *SQLiteRepository[T, P]) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, func(rec *T) error {
		P(rec).RecordMeta().MarkDeleted(r.clock())
		return nil
	})
}

// Update loads the record, applies fn, touches it as a local edit and
// writes it back, all in one transaction.
func (r *SQLiteRepository[T, P]) Update(ctx context.Context, id uuid.UUID, fn func(rec *T) error) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := r.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		P(rec).RecordMeta().Touch(r.clock())
		return r.Upsert(ctx, tx, rec)
	})
}

func (r *SQLiteRepository[T, P]) RecordCount(ctx context.Context) (int, error) {
	return r.count(ctx, "")
}

// PendingSyncRecordCount counts records not yet confirmed by the server,
// including those left IN_FLIGHT by an interrupted push.
func (r *SQLiteRepository[T, P]) PendingSyncRecordCount(ctx context.Context) (int, error) {
	return r.count(ctx, "WHERE sync_status IN (?, ?)",
		string(models.SyncStatusPending), string(models.SyncStatusInFlight))
}

func (r *SQLiteRepository[T, P]) count(ctx context.Context, where string, args ...any) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM " + r.schema.Table
	if where != "" {
		q += " " + where
	}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.schema.Table, err)
	}
	return n, nil
}

func (r *SQLiteRepository[T, P]) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+r.schema.Table); err != nil {
		return fmt.Errorf("clear %s: %w", r.schema.Table, err)
	}
	return nil
}
