// Package medicalhistory stores per-patient medical history answers.
package medicalhistory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/syncable"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/google/uuid"
)

const Table = "medical_histories"

var schema = syncable.Schema[models.MedicalHistory]{
	Table: Table,
	Columns: []string{
		"patient_id",
		"diagnosed_with_hypertension",
		"is_on_treatment_for_hypertension",
		"has_had_heart_attack",
		"has_had_stroke",
		"has_had_kidney_disease",
		"has_diabetes",
	},
	Values: func(h *models.MedicalHistory) []any {
		return []any{
			h.PatientID.String(),
			answer(h.DiagnosedWithHypertension),
			answer(h.IsOnTreatmentForHypertension),
			answer(h.HasHadHeartAttack),
			answer(h.HasHadStroke),
			answer(h.HasHadKidneyDisease),
			answer(h.HasDiabetes),
		}
	},
	Fields: func(h *models.MedicalHistory) []any {
		return []any{
			&h.PatientID,
			(*string)(&h.DiagnosedWithHypertension),
			(*string)(&h.IsOnTreatmentForHypertension),
			(*string)(&h.HasHadHeartAttack),
			(*string)(&h.HasHadStroke),
			(*string)(&h.HasHadKidneyDisease),
			(*string)(&h.HasDiabetes),
		}
	},
}

// answer stores an empty answer as unanswered.
func answer(a models.Answer) string {
	return string(models.ParseAnswer(string(a)))
}

type Repository struct {
	*syncable.SQLiteRepository[models.MedicalHistory, *models.MedicalHistory]
}

var _ syncable.Repository[models.MedicalHistory] = (*Repository)(nil)

func NewSQLiteRepository(db *sql.DB, clock syncable.Clock) *Repository {
	return &Repository{SQLiteRepository: syncable.NewSQLiteRepository[models.MedicalHistory](db, schema, clock)}
}

// Answers is the set of responses captured on the medical history form.
type Answers struct {
	DiagnosedWithHypertension    models.Answer
	IsOnTreatmentForHypertension models.Answer
	HasHadHeartAttack            models.Answer
	HasHadStroke                 models.Answer
	HasHadKidneyDisease          models.Answer
	HasDiabetes                  models.Answer
}

// HistoryForPatient returns the latest history of the patient, or an
// unsaved all-unanswered history when none exists.
func (r *Repository) HistoryForPatient(ctx context.Context, patientID uuid.UUID) (*models.MedicalHistory, error) {
	recs, err := r.Query(ctx, r.DB(),
		"WHERE patient_id = ? AND deleted_at IS NULL ORDER BY updated_at DESC, id LIMIT 1", patientID.String())
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		return &recs[0], nil
	}

	h := models.MedicalHistory{
		Meta:                         models.NewMeta(r.Now()),
		PatientID:                    patientID,
		DiagnosedWithHypertension:    models.AnswerUnanswered,
		IsOnTreatmentForHypertension: models.AnswerUnanswered,
		HasHadHeartAttack:            models.AnswerUnanswered,
		HasHadStroke:                 models.AnswerUnanswered,
		HasHadKidneyDisease:          models.AnswerUnanswered,
		HasDiabetes:                  models.AnswerUnanswered,
	}
	return &h, nil
}

// SaveAnswers records the answers for a patient, updating the existing
// history if there is one.
func (r *Repository) SaveAnswers(ctx context.Context, patientID uuid.UUID, a Answers) (*models.MedicalHistory, error) {
	h, err := r.HistoryForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	apply := func(rec *models.MedicalHistory) error {
		rec.DiagnosedWithHypertension = models.ParseAnswer(string(a.DiagnosedWithHypertension))
		rec.IsOnTreatmentForHypertension = models.ParseAnswer(string(a.IsOnTreatmentForHypertension))
		rec.HasHadHeartAttack = models.ParseAnswer(string(a.HasHadHeartAttack))
		rec.HasHadStroke = models.ParseAnswer(string(a.HasHadStroke))
		rec.HasHadKidneyDisease = models.ParseAnswer(string(a.HasHadKidneyDisease))
		rec.HasDiabetes = models.ParseAnswer(string(a.HasDiabetes))
		return nil
	}

	_, err = r.Get(ctx, h.ID)
	switch {
	case err == nil:
		if err := r.Update(ctx, h.ID, apply); err != nil {
			return nil, err
		}
		return r.Get(ctx, h.ID)
	case errors.Is(err, common.ErrNotFound):
		_ = apply(h)
		if err := r.Save(ctx, []models.MedicalHistory{*h}); err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("save medical history: %w", err)
	}
}
