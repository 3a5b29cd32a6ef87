// Package models defines the client-side records moved by the sync engine
// and the session/user types that gate it.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus tags every locally stored record with its position in the
// push pipeline.
type SyncStatus string

const (
	// SyncStatusPending marks a local mutation not yet acknowledged by the server.
	SyncStatusPending SyncStatus = "PENDING"
	// SyncStatusInFlight marks a record included in a push that has not completed.
	SyncStatusInFlight SyncStatus = "IN_FLIGHT"
	// SyncStatusDone marks a record whose latest version is on the server.
	SyncStatusDone SyncStatus = "DONE"
	// SyncStatusInvalid marks a record the server rejected during push.
	SyncStatusInvalid SyncStatus = "INVALID"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusInFlight, SyncStatusDone, SyncStatusInvalid:
		return true
	}
	return false
}

// Meta is the sync bookkeeping embedded in every syncable record. SyncStatus
// never travels over the wire.
type Meta struct {
	ID         uuid.UUID  `json:"id"`
	SyncStatus SyncStatus `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// NewMeta returns metadata for a freshly created local record.
func NewMeta(now time.Time) Meta {
	now = now.UTC()
	return Meta{
		ID:         uuid.New(),
		SyncStatus: SyncStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// RecordMeta gives generic code access to the embedded metadata.
func (m *Meta) RecordMeta() *Meta { return m }

// Touch marks the record as locally modified at now. UpdatedAt never moves
// before CreatedAt.
func (m *Meta) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(m.CreatedAt) {
		now = m.CreatedAt
	}
	m.UpdatedAt = now
	m.SyncStatus = SyncStatusPending
}

// MarkDeleted soft-deletes the record; it stays PENDING until pushed.
func (m *Meta) MarkDeleted(now time.Time) {
	m.Touch(now)
	at := m.UpdatedAt
	m.DeletedAt = &at
}

func (m *Meta) IsDeleted() bool { return m.DeletedAt != nil }

// Record is satisfied by a pointer to any struct embedding Meta.
type Record interface {
	RecordMeta() *Meta
}
