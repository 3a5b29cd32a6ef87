package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patient(id uuid.UUID, updatedAt, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%q,"updated_at":%q,"full_name":%q,"gender":"female"}`, id, updatedAt, name))
}

func TestPushAndPull(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory(), nil)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	rejected, err := s.Push(ctx, rpc.ResourcePatients, []json.RawMessage{
		patient(a, "2024-03-01T10:00:00Z", "Asha"),
		patient(b, "2024-03-01T10:00:00Z", "Bala"),
		patient(c, "2024-03-01T10:00:00Z", ""),
	})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, c, rejected[0].ID)
	assert.Equal(t, []string{blank}, rejected[0].Fields["full_name"])

	page, err := s.Pull(ctx, rpc.ResourcePatients, 1, "")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "1", page.ProcessToken)

	rest, err := s.Pull(ctx, rpc.ResourcePatients, 10, page.ProcessToken)
	require.NoError(t, err)
	require.Len(t, rest.Records, 1)
	assert.Equal(t, "2", rest.ProcessToken)

	done, err := s.Pull(ctx, rpc.ResourcePatients, 10, rest.ProcessToken)
	require.NoError(t, err)
	assert.Empty(t, done.Records)
	assert.Equal(t, "2", done.ProcessToken, "empty page keeps the token")
}

func TestPush_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory(), nil)
	id := uuid.New()
	rec := patient(id, "2024-03-01T10:00:00Z", "Asha")

	for range 2 {
		rejected, err := s.Push(ctx, rpc.ResourcePatients, []json.RawMessage{rec})
		require.NoError(t, err)
		assert.Empty(t, rejected)
	}

	all, err := s.Pull(ctx, rpc.ResourcePatients, 10, "")
	require.NoError(t, err)
	assert.Len(t, all.Records, 1)
}

func TestPush_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory(), nil)
	id := uuid.New()

	rejected, err := s.Push(ctx, rpc.ResourceBloodPressures, []json.RawMessage{
		json.RawMessage(fmt.Sprintf(`{"id":%q,"updated_at":"2024-03-01T10:00:00Z","patient_id":%q,"systolic":0,"diastolic":80}`, id, uuid.New())),
		json.RawMessage(`{"full_name":"no id"}`),
		json.RawMessage(`[1,2]`),
	})
	require.NoError(t, err)
	require.Len(t, rejected, 3)

	assert.Equal(t, id, rejected[0].ID)
	assert.Contains(t, rejected[0].Fields, "systolic")
	assert.NotContains(t, rejected[0].Fields, "diastolic")

	assert.Equal(t, uuid.Nil, rejected[1].ID)
	assert.Contains(t, rejected[1].Fields, "id")
	assert.Contains(t, rejected[1].Fields, "updated_at")
	assert.Contains(t, rejected[1].Fields, "patient_id")

	assert.Contains(t, rejected[2].Fields, "record")
}

func TestUnknownResourceAndToken(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory(), nil)

	_, err := s.Push(ctx, rpc.Resource("cars"), nil)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Pull(ctx, rpc.Resource("cars"), 10, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Pull(ctx, rpc.ResourcePatients, 10, "abc")
	assert.ErrorIs(t, err, common.ErrValidation)
}

type failingStore struct {
	store.RecordStore
}

func (failingStore) Upsert(context.Context, rpc.Resource, []store.Record) error {
	return errors.New("disk full")
}

func TestPush_StoreFailure(t *testing.T) {
	s := NewService(failingStore{}, nil)
	_, err := s.Push(context.Background(), rpc.ResourcePatients,
		[]json.RawMessage{patient(uuid.New(), "2024-03-01T10:00:00Z", "Asha")})
	require.ErrorContains(t, err, "disk full")
}
