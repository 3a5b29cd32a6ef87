package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/bloodpressures"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/medicalhistory"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/patients"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/prescriptions"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/google/uuid"
)

var ErrNoFacility = errors.New("logged in user has no facility")

// workplace returns the logged in user and the facility records are
// attributed to.
func (a *App) workplace(ctx context.Context) (*models.User, uuid.UUID, error) {
	u, err := a.Session.LoggedInUser(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if len(u.FacilityIDs) == 0 {
		return nil, uuid.Nil, ErrNoFacility
	}
	return u, u.FacilityIDs[0], nil
}

func (a *App) RegisterPatient(ctx context.Context, in patients.NewPatient) (*models.Patient, error) {
	if in.FullName == "" {
		return nil, fmt.Errorf("%w: full name is required", common.ErrValidation)
	}
	return a.Repos.Patients.Register(ctx, in)
}

func (a *App) SearchPatients(ctx context.Context, query string) ([]models.Patient, error) {
	return a.Repos.Patients.Search(ctx, query)
}

// RecordBloodPressure validates the raw readings and stores a measurement
// taken now at the user's facility.
func (a *App) RecordBloodPressure(ctx context.Context, patientID uuid.UUID, systolic, diastolic string) (*models.BloodPressureMeasurement, error) {
	sys, dia, err := bloodpressures.Validate(systolic, diastolic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	u, facility, err := a.workplace(ctx)
	if err != nil {
		return nil, err
	}
	return a.Repos.BloodPressures.SaveMeasurement(ctx, bloodpressures.NewMeasurement{
		PatientID:  patientID,
		FacilityID: facility,
		UserID:     u.ID,
		Systolic:   sys,
		Diastolic:  dia,
		RecordedAt: time.Now().UTC(),
	})
}

func (a *App) BloodPressureHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]models.BloodPressureMeasurement, error) {
	return a.Repos.BloodPressures.NewestMeasurementsForPatient(ctx, patientID, limit)
}

// CorrectBloodPressure replaces the readings of a stored measurement.
func (a *App) CorrectBloodPressure(ctx context.Context, id uuid.UUID, systolic, diastolic string) error {
	sys, dia, err := bloodpressures.Validate(systolic, diastolic)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return a.Repos.BloodPressures.UpdateMeasurement(ctx, id, sys, dia)
}

func (a *App) DeleteBloodPressure(ctx context.Context, id uuid.UUID) error {
	return a.Repos.BloodPressures.MarkAsDeleted(ctx, id)
}

func (a *App) Prescribe(ctx context.Context, patientID uuid.UUID, name string, dosage *string, protocol bool) (*models.PrescribedDrug, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: drug name is required", common.ErrValidation)
	}
	_, facility, err := a.workplace(ctx)
	if err != nil {
		return nil, err
	}
	return a.Repos.Prescriptions.SavePrescription(ctx, prescriptions.NewPrescription{
		PatientID:      patientID,
		FacilityID:     facility,
		Name:           name,
		Dosage:         dosage,
		IsProtocolDrug: protocol,
	})
}

func (a *App) Prescriptions(ctx context.Context, patientID uuid.UUID) ([]models.PrescribedDrug, error) {
	return a.Repos.Prescriptions.NewestPrescriptionsForPatient(ctx, patientID)
}

func (a *App) StopPrescription(ctx context.Context, id uuid.UUID) error {
	return a.Repos.Prescriptions.SoftDeletePrescription(ctx, id)
}

// ScheduleAppointment closes earlier appointments of the patient as visited
// and books a new one at the user's facility.
func (a *App) ScheduleAppointment(ctx context.Context, patientID uuid.UUID, date time.Time) (*models.Appointment, error) {
	_, facility, err := a.workplace(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Repos.Appointments.MarkAppointmentsCreatedBeforeTodayAsVisited(ctx, patientID); err != nil {
		return nil, err
	}
	return a.Repos.Appointments.Schedule(ctx, patientID, facility, date)
}

func (a *App) CancelAppointment(ctx context.Context, id uuid.UUID, reason models.AppointmentStatusReason) error {
	return a.Repos.Appointments.Cancel(ctx, id, reason)
}

func (a *App) MarkAppointmentVisited(ctx context.Context, id uuid.UUID) error {
	return a.Repos.Appointments.MarkAsVisited(ctx, id)
}

// NextAppointment returns the patient's scheduled appointment, or
// common.ErrNotFound.
func (a *App) NextAppointment(ctx context.Context, patientID uuid.UUID) (*models.Appointment, error) {
	return a.Repos.Appointments.ScheduledAppointmentForPatient(ctx, patientID)
}

func (a *App) SaveMedicalHistory(ctx context.Context, patientID uuid.UUID, answers medicalhistory.Answers) (*models.MedicalHistory, error) {
	return a.Repos.MedicalHistories.SaveAnswers(ctx, patientID, answers)
}

func (a *App) MedicalHistory(ctx context.Context, patientID uuid.UUID) (*models.MedicalHistory, error) {
	return a.Repos.MedicalHistories.HistoryForPatient(ctx, patientID)
}

// ExportPatients writes the patients matching query as a JSON file in the
// files directory and returns its path.
func (a *App) ExportPatients(ctx context.Context, query string) (string, error) {
	list, err := a.Repos.Patients.Search(ctx, query)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrUnexpected, err)
	}
	name := fmt.Sprintf("patients-%s.json", time.Now().UTC().Format("20060102-150405"))
	return a.Files.Write(ctx, name, data)
}
