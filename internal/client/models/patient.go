package models

import (
	"time"
)

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderTransgender Gender = "transgender"
)

type PatientStatus string

const (
	PatientStatusActive       PatientStatus = "active"
	PatientStatusDead         PatientStatus = "dead"
	PatientStatusMigrated     PatientStatus = "migrated"
	PatientStatusUnresponsive PatientStatus = "unresponsive"
	PatientStatusInactive     PatientStatus = "inactive"
)

type Patient struct {
	Meta
	FullName    string        `json:"full_name"`
	Gender      Gender        `json:"gender"`
	DateOfBirth *time.Time    `json:"date_of_birth,omitempty"`
	Age         *int          `json:"age,omitempty"`
	Status      PatientStatus `json:"status"`
	PhoneNumber string        `json:"phone_number,omitempty"`
	Address     string        `json:"address,omitempty"`
	RecordedAt  time.Time     `json:"recorded_at"`
}
