// Package bloodpressures stores blood pressure measurements.
package bloodpressures

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/syncable"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/dbx"
	"github.com/google/uuid"
)

const Table = "blood_pressure_measurements"

var schema = syncable.Schema[models.BloodPressureMeasurement]{
	Table:   Table,
	Columns: []string{"patient_id", "facility_id", "user_id", "systolic", "diastolic", "recorded_at"},
	Values: func(m *models.BloodPressureMeasurement) []any {
		return []any{
			m.PatientID.String(), m.FacilityID.String(), m.UserID.String(),
			m.Systolic, m.Diastolic, dbx.TimeArg(m.RecordedAt),
		}
	},
	Fields: func(m *models.BloodPressureMeasurement) []any {
		return []any{
			&m.PatientID, &m.FacilityID, &m.UserID,
			&m.Systolic, &m.Diastolic, dbx.ScanTime(&m.RecordedAt),
		}
	},
}

type Repository struct {
	*syncable.SQLiteRepository[models.BloodPressureMeasurement, *models.BloodPressureMeasurement]
}

var _ syncable.Repository[models.BloodPressureMeasurement] = (*Repository)(nil)

func NewSQLiteRepository(db *sql.DB, clock syncable.Clock) *Repository {
	return &Repository{SQLiteRepository: syncable.NewSQLiteRepository[models.BloodPressureMeasurement](db, schema, clock)}
}

// NewMeasurement carries a reading taken at a facility by a user.
type NewMeasurement struct {
	PatientID  uuid.UUID
	FacilityID uuid.UUID
	UserID     uuid.UUID
	Systolic   int
	Diastolic  int
	// RecordedAt defaults to now.
	RecordedAt time.Time
}

// SaveMeasurement validates and stores a new PENDING measurement.
func (r *Repository) SaveMeasurement(ctx context.Context, in NewMeasurement) (*models.BloodPressureMeasurement, error) {
	if err := ValidateValues(in.Systolic, in.Diastolic); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	now := r.Now()
	recordedAt := in.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}

	m := models.BloodPressureMeasurement{
		Meta:       models.NewMeta(now),
		PatientID:  in.PatientID,
		FacilityID: in.FacilityID,
		UserID:     in.UserID,
		Systolic:   in.Systolic,
		Diastolic:  in.Diastolic,
		RecordedAt: recordedAt.UTC(),
	}
	if err := r.Save(ctx, []models.BloodPressureMeasurement{m}); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMeasurement changes the readings of an existing measurement.
func (r *Repository) UpdateMeasurement(ctx context.Context, id uuid.UUID, systolic, diastolic int) error {
	if err := ValidateValues(systolic, diastolic); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return r.Update(ctx, id, func(m *models.BloodPressureMeasurement) error {
		m.Systolic = systolic
		m.Diastolic = diastolic
		return nil
	})
}

// MarkAsDeleted soft-deletes a measurement.
func (r *Repository) MarkAsDeleted(ctx context.Context, id uuid.UUID) error {
	return r.SoftDelete(ctx, id)
}

// NewestMeasurementsForPatient returns up to limit non-deleted readings,
// newest first.
func (r *Repository) NewestMeasurementsForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]models.BloodPressureMeasurement, error) {
	return r.Query(ctx, r.DB(),
		"WHERE patient_id = ? AND deleted_at IS NULL ORDER BY recorded_at DESC, id LIMIT ?",
		patientID.String(), limit)
}
