// Package patients stores patient records.
package patients

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/syncable"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/dbx"
)

const Table = "patients"

var schema = syncable.Schema[models.Patient]{
	Table: Table,
	Columns: []string{
		"full_name", "gender", "date_of_birth", "age", "status", "phone_number", "address", "recorded_at",
	},
	Values: func(p *models.Patient) []any {
		return []any{
			p.FullName, string(p.Gender), dbx.NullTimeArg(p.DateOfBirth), p.Age,
			string(p.Status), p.PhoneNumber, p.Address, dbx.TimeArg(p.RecordedAt),
		}
	},
	Fields: func(p *models.Patient) []any {
		return []any{
			&p.FullName, (*string)(&p.Gender), dbx.ScanNullTime(&p.DateOfBirth), &p.Age,
			(*string)(&p.Status), &p.PhoneNumber, &p.Address, dbx.ScanTime(&p.RecordedAt),
		}
	},
}

// Repository is the patient store.
type Repository struct {
	*syncable.SQLiteRepository[models.Patient, *models.Patient]
}

var _ syncable.Repository[models.Patient] = (*Repository)(nil)

func NewSQLiteRepository(db *sql.DB, clock syncable.Clock) *Repository {
	return &Repository{SQLiteRepository: syncable.NewSQLiteRepository[models.Patient](db, schema, clock)}
}

// NewPatient carries the fields entered when registering a patient.
type NewPatient struct {
	FullName    string
	Gender      models.Gender
	DateOfBirth *time.Time
	Age         *int
	PhoneNumber string
	Address     string
}

// Register creates an active, PENDING patient.
func (r *Repository) Register(ctx context.Context, in NewPatient) (*models.Patient, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: patient name is required", common.ErrValidation)
	}
	if in.DateOfBirth == nil && in.Age == nil {
		return nil, fmt.Errorf("%w: patient needs a date of birth or an age", common.ErrValidation)
	}

	now := r.Now()
	p := models.Patient{
		Meta:        models.NewMeta(now),
		FullName:    name,
		Gender:      in.Gender,
		DateOfBirth: in.DateOfBirth,
		Age:         in.Age,
		Status:      models.PatientStatusActive,
		PhoneNumber: in.PhoneNumber,
		Address:     in.Address,
		RecordedAt:  now,
	}
	if err := r.Save(ctx, []models.Patient{p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// Search finds non-deleted patients whose name contains query.
func (r *Repository) Search(ctx context.Context, query string) ([]models.Patient, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return r.Query(ctx, r.DB(),
		"WHERE deleted_at IS NULL AND lower(full_name) LIKE ? ORDER BY full_name, id", like)
}

// UpdateStatus sets the patient status as a local edit.
func (r *Repository) UpdateStatus(ctx context.Context, p *models.Patient, status models.PatientStatus) error {
	return r.Update(ctx, p.ID, func(rec *models.Patient) error {
		rec.Status = status
		return nil
	})
}
