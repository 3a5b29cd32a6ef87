// Package repositories groups the local stores of the client engine and the
// operations that span several of them.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/appointments"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/bloodpressures"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/medicalhistory"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/patients"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/prescriptions"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/syncable"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/users"
	"github.com/dmitrijs2005/clinicsync/internal/client/storage"
	"github.com/dmitrijs2005/clinicsync/internal/dbx"
)

// ClinicalTables lists the clinical record tables, patients first.
var ClinicalTables = []string{
	patients.Table,
	bloodpressures.Table,
	prescriptions.Table,
	appointments.Table,
	medicalhistory.Table,
}

type Repositories struct {
	DB               *sql.DB
	Metadata         *metadata.SQLiteRepository
	Users            *users.SQLiteRepository
	Patients         *patients.Repository
	BloodPressures   *bloodpressures.Repository
	Prescriptions    *prescriptions.Repository
	Appointments     *appointments.Repository
	MedicalHistories *medicalhistory.Repository
}

// New builds every repository over db.
func New(db *sql.DB, clock syncable.Clock) *Repositories {
	return &Repositories{
		DB:               db,
		Metadata:         metadata.NewSQLiteRepository(db),
		Users:            users.NewSQLiteRepository(db),
		Patients:         patients.NewSQLiteRepository(db, clock),
		BloodPressures:   bloodpressures.NewSQLiteRepository(db, clock),
		Prescriptions:    prescriptions.NewSQLiteRepository(db, clock),
		Appointments:     appointments.NewSQLiteRepository(db, clock),
		MedicalHistories: medicalhistory.NewSQLiteRepository(db, clock),
	}
}

// Open opens and migrates the database at path.
func Open(ctx context.Context, path string, clock syncable.Clock) (*Repositories, error) {
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(db, clock), nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

// ClearClinicalData removes every clinical record in one transaction and
// returns how many rows each table held.
func (r *Repositories) ClearClinicalData(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(ClinicalTables))
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return clearTables(ctx, tx, ClinicalTables, counts)
	})
	if err != nil {
		return nil, fmt.Errorf("clear clinical data: %w", err)
	}
	return counts, nil
}

// ClearAll removes every persisted record including the logged in user.
// Preferences live in the metadata store and are cleared separately.
func (r *Repositories) ClearAll(ctx context.Context) error {
	tables := append(append([]string{}, ClinicalTables...), "users")
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return clearTables(ctx, tx, tables, nil)
	})
	if err != nil {
		return fmt.Errorf("clear database: %w", err)
	}
	return nil
}

func clearTables(ctx context.Context, tx dbx.DBTX, tables []string, counts map[string]int) error {
	for _, t := range tables {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+t)
		if err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
		if counts != nil {
			n, _ := res.RowsAffected()
			counts[t] = int(n)
		}
	}
	return nil
}

// PendingSyncRecordCounts returns the number of PENDING records per table.
func (r *Repositories) PendingSyncRecordCounts(ctx context.Context) (map[string]int, error) {
	counters := map[string]interface {
		PendingSyncRecordCount(ctx context.Context) (int, error)
	}{
		patients.Table:       r.Patients,
		bloodpressures.Table: r.BloodPressures,
		prescriptions.Table:  r.Prescriptions,
		appointments.Table:   r.Appointments,
		medicalhistory.Table: r.MedicalHistories,
	}

	out := make(map[string]int, len(counters))
	for table, c := range counters {
		n, err := c.PendingSyncRecordCount(ctx)
		if err != nil {
			return nil, err
		}
		out[table] = n
	}
	return out, nil
}
