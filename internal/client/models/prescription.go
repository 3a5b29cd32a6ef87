package models

import "github.com/google/uuid"

type PrescribedDrug struct {
	Meta
	PatientID      uuid.UUID `json:"patient_id"`
	FacilityID     uuid.UUID `json:"facility_id"`
	Name           string    `json:"name"`
	Dosage         *string   `json:"dosage,omitempty"`
	RxNormCode     *string   `json:"rxnorm_code,omitempty"`
	IsProtocolDrug bool      `json:"is_protocol_drug"`
	IsDeleted      bool      `json:"is_deleted"`
}
