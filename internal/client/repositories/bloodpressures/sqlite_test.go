package bloodpressures

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/storage"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "clinic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestValidate(t *testing.T) {
	tests := []struct {
		systolic, diastolic string
		want                error
	}{
		{"", "80", ErrSystolicEmpty},
		{"120", " ", ErrDiastolicEmpty},
		{"69", "40", ErrSystolicTooLow},
		{"301", "90", ErrSystolicTooHigh},
		{"120", "39", ErrDiastolicTooLow},
		{"200", "181", ErrDiastolicTooHigh},
		{"90", "100", ErrSystolicLessThanDiastolic},
		{"12a", "80", ErrSystolicEmpty},
		{"120", "80", nil},
	}

	for _, tt := range tests {
		s, d, err := Validate(tt.systolic, tt.diastolic)
		if tt.want == nil {
			require.NoError(t, err)
			assert.Equal(t, 120, s)
			assert.Equal(t, 80, d)
			continue
		}
		assert.True(t, errors.Is(err, tt.want), "%s/%s: got %v", tt.systolic, tt.diastolic, err)
	}
}

func TestSaveUpdateDeleteMeasurement(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), nil)
	ctx := context.Background()
	patientID := uuid.New()

	older, err := r.SaveMeasurement(ctx, NewMeasurement{
		PatientID: patientID, FacilityID: uuid.New(), UserID: uuid.New(),
		Systolic: 140, Diastolic: 90, RecordedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	newer, err := r.SaveMeasurement(ctx, NewMeasurement{PatientID: patientID, Systolic: 130, Diastolic: 85})
	require.NoError(t, err)

	list, err := r.NewestMeasurementsForPatient(ctx, patientID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	require.NoError(t, r.SetSyncStatus(ctx, models.SyncStatusPending, models.SyncStatusDone))
	require.NoError(t, r.UpdateMeasurement(ctx, older.ID, 150, 95))

	got, err := r.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Systolic)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)

	require.NoError(t, r.MarkAsDeleted(ctx, newer.ID))
	list, err = r.NewestMeasurementsForPatient(ctx, patientID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, older.ID, list[0].ID)
}

func TestSaveMeasurement_Invalid(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), nil)

	_, err := r.SaveMeasurement(context.Background(), NewMeasurement{PatientID: uuid.New(), Systolic: 80, Diastolic: 120})
	require.ErrorIs(t, err, common.ErrValidation)
	require.ErrorIs(t, err, ErrSystolicLessThanDiastolic)
}
