// Package prescriptions stores prescribed drugs.
package prescriptions

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
	"github.com/google/uuid"
)

const Table = "prescribed_drugs"

var schema = syncable.Schema[models.PrescribedDrug]{
	Table: Table,
	Columns: []string{
		"patient_id", "facility_id", "name", "dosage", "rxnorm_code", "is_protocol_drug", "is_deleted",
	},
	Values: func(d *models.PrescribedDrug) []any {
		return []any{
			d.PatientID.String(), d.FacilityID.String(), d.Name, d.Dosage, d.RxNormCode,
			d.IsProtocolDrug, d.IsDeleted,
		}
	},
	Fields: func(d *models.PrescribedDrug) []any {
		return []any{
			&d.PatientID, &d.FacilityID, &d.Name, &d.Dosage, &d.RxNormCode,
			&d.IsProtocolDrug, &d.IsDeleted,
		}
	},
}

type Repository struct {
	*syncable.SQLiteRepository[models.PrescribedDrug, *models.PrescribedDrug]
}

var _ syncable.Repository[models.PrescribedDrug] = (*Repository)(nil)

func NewSQLiteRepository(db *sql.DB, clock syncable.Clock) *Repository {
	return &Repository{SQLiteRepository: syncable.NewSQLiteRepository[models.PrescribedDrug](db, schema, clock)}
}

// NewPrescription describes a drug prescribed to a patient.
type NewPrescription struct {
	PatientID      uuid.UUID
	FacilityID     uuid.UUID
	Name           string
	Dosage         *string
	RxNormCode     *string
	IsProtocolDrug bool
}

// SavePrescription stores a new PENDING prescription. A dosage may be
// absent but never present and blank.
func (r *Repository) SavePrescription(ctx context.Context, in NewPrescription) (*models.PrescribedDrug, error) {
	if in.Dosage != nil && strings.TrimSpace(*in.Dosage) == "" {
		return nil, fmt.Errorf("%w: dosage cannot be empty", common.ErrPrecondition)
	}

	d := models.PrescribedDrug{
		Meta:           models.NewMeta(r.Now()),
		PatientID:      in.PatientID,
		FacilityID:     in.FacilityID,
		Name:           in.Name,
		Dosage:         in.Dosage,
		RxNormCode:     in.RxNormCode,
		IsProtocolDrug: in.IsProtocolDrug,
	}
	if err := r.Save(ctx, []models.PrescribedDrug{d}); err != nil {
		return nil, err
	}
	return &d, nil
}

// SoftDeletePrescription marks a prescription deleted.
func (r *Repository) SoftDeletePrescription(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, func(d *models.PrescribedDrug) error {
		d.IsDeleted = true
		d.MarkDeleted(r.Now())
		return nil
	})
}

// UpdatePrescription overwrites the prescription as a local edit.
func (r *Repository) UpdatePrescription(ctx context.Context, d models.PrescribedDrug) error {
	if d.Dosage != nil && strings.TrimSpace(*d.Dosage) == "" {
		return fmt.Errorf("%w: dosage cannot be empty", common.ErrPrecondition)
	}
	return r.Update(ctx, d.ID, func(rec *models.PrescribedDrug) error {
		meta := rec.Meta
		*rec = d
		rec.Meta.CreatedAt = meta.CreatedAt
		rec.Meta.DeletedAt = meta.DeletedAt
		return nil
	})
}

// NewestPrescriptionsForPatient returns active prescriptions, newest first.
func (r *Repository) NewestPrescriptionsForPatient(ctx context.Context, patientID uuid.UUID) ([]models.PrescribedDrug, error) {
	return r.Query(ctx, r.DB(),
		"WHERE patient_id = ? AND is_deleted = 0 ORDER BY updated_at DESC, id", patientID.String())
}

// HasPrescriptionForPatientChangedSince reports whether any prescription of
// the patient was updated after since.
func (r *Repository) HasPrescriptionForPatientChangedSince(ctx context.Context, patientID uuid.UUID, since time.Time) (bool, error) {
	var n int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+Table+" WHERE patient_id = ? AND updated_at > ?",
		patientID.String(), dbx.TimeArg(since)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s changes: %w", Table, err)
	}
	return n > 0, nil
}
