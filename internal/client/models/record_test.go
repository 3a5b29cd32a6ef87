package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta_TouchNeverMovesBeforeCreatedAt(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMeta(created)
	m.SyncStatus = SyncStatusDone

	m.Touch(created.Add(-time.Hour))

	assert.Equal(t, created, m.UpdatedAt)
	assert.Equal(t, SyncStatusPending, m.SyncStatus)
}

func TestMeta_MarkDeletedIsPending(t *testing.T) {
	m := NewMeta(time.Now())
	m.SyncStatus = SyncStatusDone

	m.MarkDeleted(time.Now().Add(time.Minute))

	require.True(t, m.IsDeleted())
	assert.Equal(t, SyncStatusPending, m.SyncStatus)
	assert.Equal(t, m.UpdatedAt, *m.DeletedAt)
}

func TestMeta_SyncStatusNotSerialized(t *testing.T) {
	p := Patient{Meta: NewMeta(time.Now()), FullName: "Anish Acharya"}

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, p.ID.String(), m["id"])
	assert.Equal(t, "Anish Acharya", m["full_name"])
	assert.NotContains(t, m, "SyncStatus")
	assert.NotContains(t, m, "deleted_at")
}

func TestAnswer(t *testing.T) {
	assert.Equal(t, AnswerUnanswered, ParseAnswer(""))
	assert.Equal(t, AnswerYes, ParseAnswer("yes"))
	assert.True(t, AnswerNo.IsKnown())

	custom := ParseAnswer("maybe")
	assert.False(t, custom.IsKnown())
	assert.Equal(t, "maybe", string(custom))
}

func TestLoggedInStatus_CanSync(t *testing.T) {
	allowed := map[LoggedInStatus]bool{
		LoggedInStatusNotLoggedIn:       false,
		LoggedInStatusOTPRequested:      false,
		LoggedInStatusLoggedIn:          true,
		LoggedInStatusResettingPin:      true,
		LoggedInStatusResetPinRequested: true,
		LoggedInStatusUnauthorized:      false,
	}
	for s, want := range allowed {
		assert.Equal(t, want, s.CanSync(), s)
	}
}
