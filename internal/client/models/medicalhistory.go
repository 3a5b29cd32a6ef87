package models

import "github.com/google/uuid"

// Answer is a tri-state medical history response. Values other than the
// three known ones are preserved verbatim so newer server vocabularies
// survive a round trip.
type Answer string

const (
	AnswerYes        Answer = "yes"
	AnswerNo         Answer = "no"
	AnswerUnanswered Answer = "unknown"
)

// ParseAnswer maps a wire value to an Answer; empty means unanswered.
func ParseAnswer(s string) Answer {
	if s == "" {
		return AnswerUnanswered
	}
	return Answer(s)
}

// IsKnown reports whether a is one of yes, no or unanswered.
func (a Answer) IsKnown() bool {
	switch a {
	case AnswerYes, AnswerNo, AnswerUnanswered:
		return true
	}
	return false
}

type MedicalHistory struct {
	Meta
	PatientID                    uuid.UUID `json:"patient_id"`
	DiagnosedWithHypertension    Answer    `json:"diagnosed_with_hypertension"`
	IsOnTreatmentForHypertension Answer    `json:"is_on_treatment_for_hypertension"`
	HasHadHeartAttack            Answer    `json:"has_had_heart_attack"`
	HasHadStroke                 Answer    `json:"has_had_stroke"`
	HasHadKidneyDisease          Answer    `json:"has_had_kidney_disease"`
	HasDiabetes                  Answer    `json:"has_diabetes"`
}
