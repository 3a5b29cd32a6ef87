package models

import (
	"time"

	"github.com/google/uuid"
)

type BloodPressureMeasurement struct {
	Meta
	PatientID  uuid.UUID `json:"patient_id"`
	FacilityID uuid.UUID `json:"facility_id"`
	UserID     uuid.UUID `json:"user_id"`
	Systolic   int       `json:"systolic"`
	Diastolic  int       `json:"diastolic"`
	RecordedAt time.Time `json:"recorded_at"`
}
