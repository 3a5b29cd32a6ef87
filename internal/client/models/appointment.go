package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusVisited   AppointmentStatus = "visited"
)

// AppointmentStatusReason records why an appointment has its status, or
// that the patient has not been contacted yet.
type AppointmentStatusReason string

const (
	StatusReasonNotCalledYet         AppointmentStatusReason = "not_called_yet"
	StatusReasonPatientNotResponding AppointmentStatusReason = "not_responding"
	StatusReasonMoved                AppointmentStatusReason = "moved"
	StatusReasonDead                 AppointmentStatusReason = "dead"
	StatusReasonInvalidPhoneNumber   AppointmentStatusReason = "invalid_phone_number"
	StatusReasonOther                AppointmentStatusReason = "other"
)

type Appointment struct {
	Meta
	PatientID     uuid.UUID               `json:"patient_id"`
	FacilityID    uuid.UUID               `json:"facility_id"`
	ScheduledDate time.Time               `json:"scheduled_date"`
	Status        AppointmentStatus       `json:"status"`
	StatusReason  AppointmentStatusReason `json:"status_reason"`
	RemindOn      *time.Time              `json:"remind_on,omitempty"`
	AgreedToVisit *bool                   `json:"agreed_to_visit,omitempty"`
}
