// Package appointments stores follow-up appointments.
package appointments

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

const Table = "appointments"

var schema = syncable.Schema[models.Appointment]{
	Table: Table,
	Columns: []string{
		"patient_id", "facility_id", "scheduled_date", "status", "status_reason", "remind_on", "agreed_to_visit",
	},
	Values: func(a *models.Appointment) []any {
		return []any{
			a.PatientID.String(), a.FacilityID.String(), dbx.TimeArg(a.ScheduledDate),
			string(a.Status), string(a.StatusReason), dbx.NullTimeArg(a.RemindOn), a.AgreedToVisit,
		}
	},
	Fields: func(a *models.Appointment) []any {
		return []any{
			&a.PatientID, &a.FacilityID, dbx.ScanTime(&a.ScheduledDate),
			(*string)(&a.Status), (*string)(&a.StatusReason), dbx.ScanNullTime(&a.RemindOn), &a.AgreedToVisit,
		}
	},
}

type Repository struct {
	*syncable.SQLiteRepository[models.Appointment, *models.Appointment]
}

var _ syncable.Repository[models.Appointment] = (*Repository)(nil)

func NewSQLiteRepository(db *sql.DB, clock syncable.Clock) *Repository {
	return &Repository{SQLiteRepository: syncable.NewSQLiteRepository[models.Appointment](db, schema, clock)}
}

// Schedule books a new appointment for the patient on date. Every
// appointment of the patient still scheduled is cancelled first. The new
// and the cancelled rows are all PENDING.
func (r *Repository) Schedule(ctx context.Context, patientID, facilityID uuid.UUID, date time.Time) (*models.Appointment, error) {
	now := r.Now()
	appt := models.Appointment{
		Meta:          models.NewMeta(now),
		PatientID:     patientID,
		FacilityID:    facilityID,
		ScheduledDate: startOfDay(date),
		Status:        models.AppointmentStatusScheduled,
		StatusReason:  models.StatusReasonNotCalledYet,
	}

	err := dbx.WithTx(ctx, r.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.setStatusWhere(ctx, tx, models.AppointmentStatusCancelled, now,
			"patient_id = ? AND status = ?", patientID.String(), string(models.AppointmentStatusScheduled)); err != nil {
			return err
		}
		return r.Upsert(ctx, tx, &appt)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule appointment: %w", err)
	}
	return &appt, nil
}

// MarkAsVisited closes the appointment as visited.
func (r *Repository) MarkAsVisited(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, func(a *models.Appointment) error {
		a.Status = models.AppointmentStatusVisited
		return nil
	})
}

// Cancel closes the appointment with reason.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, reason models.AppointmentStatusReason) error {
	return r.Update(ctx, id, func(a *models.Appointment) error {
		a.Status = models.AppointmentStatusCancelled
		a.StatusReason = reason
		return nil
	})
}

// AgreedToVisit records that the patient promised to come, with a reminder
// three days out.
func (r *Repository) AgreedToVisit(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, func(a *models.Appointment) error {
		yes := true
		remind := startOfDay(r.Now()).AddDate(0, 0, 3)
		a.AgreedToVisit = &yes
		a.RemindOn = &remind
		return nil
	})
}

// MarkAppointmentsCreatedBeforeTodayAsVisited closes the patient's
// scheduled appointments created before the start of today (UTC).
func (r *Repository) MarkAppointmentsCreatedBeforeTodayAsVisited(ctx context.Context, patientID uuid.UUID) error {
	now := r.Now()
	return r.setStatusWhere(ctx, r.DB(), models.AppointmentStatusVisited, now,
		"patient_id = ? AND status = ? AND created_at < ?",
		patientID.String(), string(models.AppointmentStatusScheduled), dbx.TimeArg(startOfDay(now)))
}

// ScheduledAppointmentForPatient returns the patient's open appointment.
func (r *Repository) ScheduledAppointmentForPatient(ctx context.Context, patientID uuid.UUID) (*models.Appointment, error) {
	recs, err := r.Query(ctx, r.DB(),
		"WHERE patient_id = ? AND status = ? AND deleted_at IS NULL ORDER BY scheduled_date DESC, id LIMIT 1",
		patientID.String(), string(models.AppointmentStatusScheduled))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("scheduled appointment for %s: %w", patientID, common.ErrNotFound)
	}
	return &recs[0], nil
}

// setStatusWhere is a bulk local edit: it moves matching rows to status and
// back to PENDING.
func (r *Repository) setStatusWhere(ctx context.Context, q dbx.DBTX, status models.AppointmentStatus, now time.Time, where string, args ...any) error {
	query := "UPDATE " + Table + " SET status = ?, sync_status = ?, updated_at = max(created_at, ?) WHERE " + where
	all := append([]any{string(status), string(models.SyncStatusPending), dbx.TimeArg(now)}, args...)
	if _, err := q.ExecContext(ctx, query, all...); err != nil {
		return fmt.Errorf("set appointments %s: %w", status, err)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
