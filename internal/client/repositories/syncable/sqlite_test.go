package syncable

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type widget struct {
	models.Meta
	Name  string
	Count *int
}

var widgetSchema = Schema[widget]{
	Table:   "widgets",
	Columns: []string{"name", "count"},
	Values: func(w *widget) []any {
		if w.Name == "" {
			return []any{nil, w.Count}
		}
		return []any{w.Name, w.Count}
	},
	Fields: func(w *widget) []any { return []any{&w.Name, &w.Count} },
}

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return base.Add(time.Hour) }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "w.db")+"?_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE widgets (
  id          TEXT PRIMARY KEY,
  sync_status TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL,
  deleted_at  TEXT,
  name        TEXT NOT NULL,
  count       INTEGER
);`)
	require.NoError(t, err)
	return db
}

func newRepo(t *testing.T) *SQLiteRepository[widget, *widget] {
	return NewSQLiteRepository[widget](setupDB(t), widgetSchema, fixedClock)
}

func newWidget(name string, status models.SyncStatus) widget {
	m := models.NewMeta(base)
	m.SyncStatus = status
	return widget{Meta: m, Name: name}
}

func statusOf(t *testing.T, r *SQLiteRepository[widget, *widget], id uuid.UUID) models.SyncStatus {
	t.Helper()
	w, err := r.Get(context.Background(), id)
	require.NoError(t, err)
	return w.SyncStatus
}

func TestSave_ThenRecordsWithSyncStatus(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	n := 3
	a := newWidget("a", models.SyncStatusPending)
	a.Count = &n
	b := newWidget("b", models.SyncStatusDone)
	b.CreatedAt = base.Add(time.Minute)
	b.UpdatedAt = b.CreatedAt

	require.NoError(t, r.Save(ctx, []widget{b, a}))

	pending, err := r.RecordsWithSyncStatus(ctx, models.SyncStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)
	require.NotNil(t, pending[0].Count)
	assert.Equal(t, 3, *pending[0].Count)
	assert.True(t, base.Equal(pending[0].CreatedAt))

	done, err := r.RecordsWithSyncStatus(ctx, models.SyncStatusDone)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Nil(t, done[0].Count)
}

func TestSave_DefaultsMissingMetadata(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	w := widget{Meta: models.Meta{ID: uuid.New()}, Name: "bare"}
	require.NoError(t, r.Save(ctx, []widget{w}))

	got, err := r.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)
	assert.True(t, fixedClock().Equal(got.CreatedAt))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSave_RejectsMissingID(t *testing.T) {
	r := newRepo(t)
	err := r.Save(context.Background(), []widget{{Name: "x"}})
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestGet_NotFound(t *testing.T) {
	r := newRepo(t)
	_, err := r.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSetSyncStatus_FromTo(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a := newWidget("a", models.SyncStatusInFlight)
	b := newWidget("b", models.SyncStatusPending)
	require.NoError(t, r.Save(ctx, []widget{a, b}))

	require.NoError(t, r.SetSyncStatus(ctx, models.SyncStatusInFlight, models.SyncStatusDone))

	assert.Equal(t, models.SyncStatusDone, statusOf(t, r, a.ID))
	assert.Equal(t, models.SyncStatusPending, statusOf(t, r, b.ID))
}

func TestSetSyncStatusForIDs(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a := newWidget("a", models.SyncStatusPending)
	b := newWidget("b", models.SyncStatusPending)
	require.NoError(t, r.Save(ctx, []widget{a, b}))

	require.NoError(t, r.SetSyncStatusForIDs(ctx, []uuid.UUID{a.ID}, models.SyncStatusInFlight))

	assert.Equal(t, models.SyncStatusInFlight, statusOf(t, r, a.ID))
	assert.Equal(t, models.SyncStatusPending, statusOf(t, r, b.ID))
}

func TestSetSyncStatusForIDs_EmptyIsPrecondition(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a := newWidget("a", models.SyncStatusPending)
	require.NoError(t, r.Save(ctx, []widget{a}))

	err := r.SetSyncStatusForIDs(ctx, nil, models.SyncStatusDone)
	require.ErrorIs(t, err, common.ErrPrecondition)

	err = r.SetSyncStatusForIDs(ctx, []uuid.UUID{}, models.SyncStatusDone)
	require.ErrorIs(t, err, common.ErrPrecondition)

	assert.Equal(t, models.SyncStatusPending, statusOf(t, r, a.ID), "no row may change")
}

func TestMergeWithRemote_ConflictRule(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	done := newWidget("done-local", models.SyncStatusDone)
	pending := newWidget("pending-local", models.SyncStatusPending)
	inFlight := newWidget("inflight-local", models.SyncStatusInFlight)
	invalid := newWidget("invalid-local", models.SyncStatusInvalid)
	require.NoError(t, r.Save(ctx, []widget{done, pending, inFlight, invalid}))

	server := func(w widget) widget {
		w.Name = "server"
		w.UpdatedAt = base.Add(24 * time.Hour)
		w.SyncStatus = models.SyncStatusPending
		return w
	}
	fresh := newWidget("server", "")

	require.NoError(t, r.MergeWithRemote(ctx, []widget{
		server(done), server(pending), server(inFlight), server(invalid), fresh,
	}))

	cases := []struct {
		id         uuid.UUID
		wantName   string
		wantStatus models.SyncStatus
	}{
		{done.ID, "server", models.SyncStatusDone},
		{pending.ID, "pending-local", models.SyncStatusPending},
		{inFlight.ID, "inflight-local", models.SyncStatusInFlight},
		{invalid.ID, "server", models.SyncStatusDone},
		{fresh.ID, "server", models.SyncStatusDone},
	}
	for _, c := range cases {
		got, err := r.Get(ctx, c.id)
		require.NoError(t, err)
		assert.Equal(t, c.wantName, got.Name)
		assert.Equal(t, c.wantStatus, got.SyncStatus)
	}
}

func TestMergeWithRemote_BatchIsAtomic(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	ok := newWidget("ok", "")
	broken := newWidget("", "") // violates NOT NULL on name

	err := r.MergeWithRemote(ctx, []widget{ok, broken})
	require.Error(t, err)

	n, err := r.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a failed batch must leave the store untouched")
}

func TestMergeWithRemote_RollsBackOnMidBatchFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewSQLiteRepository[widget](db, widgetSchema, fixedClock)
	a := newWidget("a", "")
	b := newWidget("b", "")

	statusQuery := regexp.QuoteMeta("SELECT sync_status FROM widgets WHERE id = ?")
	upsert := regexp.QuoteMeta("INSERT INTO widgets")

	mock.ExpectBegin()
	mock.ExpectQuery(statusQuery).WithArgs(a.ID.String()).WillReturnRows(sqlmock.NewRows([]string{"sync_status"}))
	mock.ExpectExec(upsert).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(statusQuery).WithArgs(b.ID.String()).WillReturnRows(sqlmock.NewRows([]string{"sync_status"}))
	mock.ExpectExec(upsert).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = r.MergeWithRemote(context.Background(), []widget{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	w := newWidget("w", models.SyncStatusDone)
	require.NoError(t, r.Save(ctx, []widget{w}))

	require.NoError(t, r.SoftDelete(ctx, w.ID))

	got, err := r.Get(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)
	assert.True(t, fixedClock().Equal(got.UpdatedAt))

	require.ErrorIs(t, r.SoftDelete(ctx, uuid.New()), common.ErrNotFound)
}

func TestCountsAndClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, []widget{
		newWidget("a", models.SyncStatusPending),
		newWidget("b", models.SyncStatusDone),
		newWidget("c", models.SyncStatusPending),
		newWidget("d", models.SyncStatusInFlight),
		newWidget("e", models.SyncStatusInvalid),
	}))

	n, err := r.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// IN_FLIGHT rows of an interrupted push are still unsynced
	p, err := r.PendingSyncRecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, p)

	require.NoError(t, r.Clear(ctx))
	n, err = r.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCanBeOverriddenByServerCopy(t *testing.T) {
	st := func(s models.SyncStatus) *models.SyncStatus { return &s }

	assert.True(t, CanBeOverriddenByServerCopy(nil))
	assert.True(t, CanBeOverriddenByServerCopy(st(models.SyncStatusDone)))
	assert.True(t, CanBeOverriddenByServerCopy(st(models.SyncStatusInvalid)))
	assert.False(t, CanBeOverriddenByServerCopy(st(models.SyncStatusPending)))
	assert.False(t, CanBeOverriddenByServerCopy(st(models.SyncStatusInFlight)))
}
