// Package store keeps the server's users and synced records, either in
// memory or in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/google/uuid"
)

var ErrConflict = errors.New("already exists")

// User is the server-side account.
type User struct {
	ID          uuid.UUID
	FullName    string
	PhoneNumber string
	PinDigest   string
	Status      string
	FacilityIDs []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Record is one synced record. Seq orders changes across the resource and
// is reassigned whenever the record is replaced.
type Record struct {
	ID        uuid.UUID
	Seq       int64
	UpdatedAt time.Time
	DeletedAt *time.Time
	Data      json.RawMessage
}

type UserStore interface {
	// CreateUser fails with ErrConflict when the id or phone number is taken.
	CreateUser(ctx context.Context, u User) error
	// UserByID and UserByPhone fail with common.ErrNotFound.
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UserByPhone(ctx context.Context, phone string) (*User, error)
	UpdateUser(ctx context.Context, u User) error
}

type RecordStore interface {
	// Upsert stores records by id. A stored record newer than the incoming
	// copy is kept.
	Upsert(ctx context.Context, resource rpc.Resource, records []Record) error
	// ChangesSince returns up to limit records with Seq greater than after,
	// in Seq order.
	ChangesSince(ctx context.Context, resource rpc.Resource, after int64, limit int) ([]Record, error)
}

type Store interface {
	UserStore
	RecordStore
	Close() error
}
