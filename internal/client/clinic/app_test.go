package clinic

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/clinicsync/internal/client/config"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/patients"
	"github.com/dmitrijs2005/clinicsync/internal/client/telemetry"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/cryptox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOfflineApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	var cfg config.Config
	cfg.LoadDefaults()
	dir := t.TempDir()
	cfg.ServerAddr = "passthrough:///offline"
	cfg.DatabasePath = filepath.Join(dir, "clinic.db")
	cfg.FilesDir = filepath.Join(dir, "files")

	a, err := New(context.Background(), &cfg, nil,
		append([]Option{WithHasher(cryptox.NewBcryptHasher(4))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })
	return a
}

func TestOfflineRecording(t *testing.T) {
	ctx := context.Background()
	a := newOfflineApp(t)

	_, err := a.RegisterPatient(ctx, patients.NewPatient{})
	require.ErrorIs(t, err, common.ErrValidation)

	p, err := a.RegisterPatient(ctx, patients.NewPatient{FullName: "Ravi Kumar"})
	require.NoError(t, err)

	_, err = a.RecordBloodPressure(ctx, p.ID, "", "80")
	require.ErrorIs(t, err, common.ErrValidation)

	// measurements are attributed to the logged in user's facility
	_, err = a.RecordBloodPressure(ctx, p.ID, "120", "80")
	require.ErrorIs(t, err, common.ErrNotFound)

	counts, err := a.PendingSyncRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[patients.Table])

	err = a.SyncNow(ctx)
	require.ErrorIs(t, err, common.ErrSyncNotAllowed)

	pulled, err := a.LastPulled(ctx)
	require.NoError(t, err)
	assert.Empty(t, pulled)
}

func TestExportPatients(t *testing.T) {
	ctx := context.Background()
	a := newOfflineApp(t)

	_, err := a.RegisterPatient(ctx, patients.NewPatient{FullName: "Ravi Kumar"})
	require.NoError(t, err)
	_, err = a.RegisterPatient(ctx, patients.NewPatient{FullName: "Meena Iyer"})
	require.NoError(t, err)

	path, err := a.ExportPatients(ctx, "ravi")
	require.NoError(t, err)

	data, err := a.Files.Read(ctx, filepath.Base(path))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ravi Kumar")
	assert.NotContains(t, string(data), "Meena Iyer")
}

func TestNextAppointment_None(t *testing.T) {
	a := newOfflineApp(t)

	_, err := a.NextAppointment(context.Background(), uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestAccessTokenExpiry_NoToken(t *testing.T) {
	a := newOfflineApp(t)

	_, ok, err := a.AccessTokenExpiry(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) SetUserID(context.Context, uuid.UUID) error { return nil }
func (r *eventRecorder) ClearUserID(context.Context) error          { return nil }

func (r *eventRecorder) Report(_ context.Context, e telemetry.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Name)
	return nil
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestRefusedSyncIsReported(t *testing.T) {
	rec := &eventRecorder{}
	a := newOfflineApp(t, WithReporter(rec))

	err := a.SyncNow(context.Background())
	require.ErrorIs(t, err, common.ErrSyncNotAllowed)
	assert.Contains(t, rec.names(), telemetry.EventSyncFinished)
}
