// Package users stores the single user logged in on this device.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/dbx"
	"github.com/google/uuid"
)

type Repository interface {
	// LoggedInUser returns common.ErrNotFound when nobody is logged in.
	LoggedInUser(ctx context.Context) (*models.User, error)
	// Save replaces the stored user.
	Save(ctx context.Context, u models.User) error
	SetLoggedInStatus(ctx context.Context, id uuid.UUID, status models.LoggedInStatus) error
	// LoggedInStatus is NOT_LOGGED_IN when no user is stored.
	LoggedInStatus(ctx context.Context) (models.LoggedInStatus, error)
	Clear(ctx context.Context) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) LoggedInUser(ctx context.Context) (*models.User, error) {
	var (
		u           models.User
		status      string
		loggedIn    string
		facilityIDs string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone_number, pin_digest, status, logged_in_status, facility_ids, created_at, updated_at
		FROM users LIMIT 1`).Scan(
		&u.ID, &u.FullName, &u.PhoneNumber, &u.PinDigest, &status, &loggedIn, &facilityIDs,
		dbx.ScanTime(&u.CreatedAt), dbx.ScanTime(&u.UpdatedAt),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("logged in user: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("logged in user: %w", err)
	}
	if err := json.Unmarshal([]byte(facilityIDs), &u.FacilityIDs); err != nil {
		return nil, fmt.Errorf("decode facility ids: %w", err)
	}
	u.Status = models.UserStatus(status)
	u.LoggedInStatus = models.LoggedInStatus(loggedIn)
	return &u, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, u models.User) error {
	ids := u.FacilityIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	facilityIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode facility ids: %w", err)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id <> ?`, u.ID.String()); err != nil {
			return fmt.Errorf("replace user: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, full_name, phone_number, pin_digest, status, logged_in_status, facility_ids, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				full_name = excluded.full_name,
				phone_number = excluded.phone_number,
				pin_digest = excluded.pin_digest,
				status = excluded.status,
				logged_in_status = excluded.logged_in_status,
				facility_ids = excluded.facility_ids,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at`,
			u.ID.String(), u.FullName, u.PhoneNumber, u.PinDigest, string(u.Status), string(u.LoggedInStatus),
			string(facilityIDs), dbx.TimeArg(u.CreatedAt), dbx.TimeArg(u.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save user[%s]: %w", u.ID, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) SetLoggedInStatus(ctx context.Context, id uuid.UUID, status models.LoggedInStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET logged_in_status = ? WHERE id = ?`, string(status), id.String())
	if err != nil {
		return fmt.Errorf("set logged in status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set logged in status of %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) LoggedInStatus(ctx context.Context) (models.LoggedInStatus, error) {
	var s string
	err := r.db.QueryRowContext(ctx, `SELECT logged_in_status FROM users LIMIT 1`).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LoggedInStatusNotLoggedIn, nil
	}
	if err != nil {
		return "", fmt.Errorf("logged in status: %w", err)
	}
	return models.LoggedInStatus(s), nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	return nil
}
