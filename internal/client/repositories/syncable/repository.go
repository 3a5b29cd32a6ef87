package syncable

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/google/uuid"
)

// Repository is the capability set the sync orchestrator needs from every
// entity type.
type Repository[T any] interface {
	// Save inserts or overwrites records by id in one transaction.
	Save(ctx context.Context, records []T) error

	// RecordsWithSyncStatus returns all records in status, oldest first.
	RecordsWithSyncStatus(ctx context.Context, status models.SyncStatus) ([]T, error)

	// SetSyncStatus moves every record in from to to.
	SetSyncStatus(ctx context.Context, from, to models.SyncStatus) error

	// SetSyncStatusForIDs moves the given records to to. It fails with
	// common.ErrPrecondition when ids is empty.
	SetSyncStatusForIDs(ctx context.Context, ids []uuid.UUID, to models.SyncStatus) error

	// MergeWithRemote stores server copies as DONE where the local record
	// allows it. The batch is atomic.
	MergeWithRemote(ctx context.Context, payloads []T) error

	// SoftDelete marks the record deleted and PENDING.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID) (*T, error)
	RecordCount(ctx context.Context) (int, error)
	PendingSyncRecordCount(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Clock returns the current time; repositories take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
