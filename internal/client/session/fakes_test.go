package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/clinicsync/internal/client/filestorage"
	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/cryptox"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/google/uuid"
)

// callLog records the order in which collaborators were used.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type memUsers struct {
	mu      sync.Mutex
	u       *models.User
	saveErr error
	saves   int
}

func (r *memUsers) LoggedInUser(context.Context) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.u == nil {
		return nil, fmt.Errorf("logged in user: %w", common.ErrNotFound)
	}
	cp := *r.u
	return &cp, nil
}

func (r *memUsers) Save(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.u = &u
	return nil
}

func (r *memUsers) SetLoggedInStatus(_ context.Context, id uuid.UUID, st models.LoggedInStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.u == nil || r.u.ID != id {
		return common.ErrNotFound
	}
	r.u.LoggedInStatus = st
	return nil
}

func (r *memUsers) LoggedInStatus(context.Context) (models.LoggedInStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.u == nil {
		return models.LoggedInStatusNotLoggedIn, nil
	}
	return r.u.LoggedInStatus, nil
}

func (r *memUsers) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.u = nil
	return nil
}

type prefs struct {
	*metadata.MemoryRepository
	log      *callLog
	clearErr error
	setErr   error
}

func (p *prefs) Clear(ctx context.Context) error {
	p.log.add("clear_preferences")
	if p.clearErr != nil {
		return p.clearErr
	}
	return p.MemoryRepository.Clear(ctx)
}

func (p *prefs) Set(ctx context.Context, key string, value []byte) error {
	if p.setErr != nil {
		return p.setErr
	}
	if key == keyOnboardingComplete {
		p.log.add("onboarding_complete")
	}
	return p.MemoryRepository.Set(ctx, key, value)
}

type fakeStore struct {
	log        *callLog
	users      *memUsers
	pending    map[string]int
	pendingErr error
	clearErr   error
	clearAll   error
	cleared    int
}

func (s *fakeStore) ClearClinicalData(context.Context) (map[string]int, error) {
	s.log.add("clear_clinical_data")
	if s.clearErr != nil {
		return nil, s.clearErr
	}
	s.cleared++
	return map[string]int{"patients": 3}, nil
}

func (s *fakeStore) ClearAll(ctx context.Context) error {
	s.log.add("clear_database")
	if s.clearAll != nil {
		return s.clearAll
	}
	return s.users.Clear(ctx)
}

func (s *fakeStore) PendingSyncRecordCounts(context.Context) (map[string]int, error) {
	s.log.add("pending_counts")
	return s.pending, s.pendingErr
}

type fakeAPI struct {
	otpErr      error
	otpFor      uuid.UUID
	loginResp   *rpc.AuthResponse
	loginErr    error
	loginReq    rpc.LoginRequest
	registerReq *rpc.User
	findResp    *rpc.User
	findErr     error
	findReq     rpc.FindUserRequest
	resetResp   *rpc.AuthResponse
	resetErr    error
	resetDigest string
}

func (a *fakeAPI) RequestOTP(_ context.Context, id uuid.UUID) error {
	a.otpFor = id
	return a.otpErr
}

func (a *fakeAPI) Login(_ context.Context, phone, pin, otp string) (*rpc.AuthResponse, error) {
	a.loginReq = rpc.LoginRequest{PhoneNumber: phone, PIN: pin, OTP: otp}
	return a.loginResp, a.loginErr
}

func (a *fakeAPI) Register(_ context.Context, u rpc.User) (*rpc.AuthResponse, error) {
	a.registerReq = &u
	return &rpc.AuthResponse{AccessToken: "registered-token", User: u}, nil
}

func (a *fakeAPI) FindUser(_ context.Context, req rpc.FindUserRequest) (*rpc.User, error) {
	a.findReq = req
	return a.findResp, a.findErr
}

func (a *fakeAPI) ResetPin(_ context.Context, digest string) (*rpc.AuthResponse, error) {
	a.resetDigest = digest
	return a.resetResp, a.resetErr
}

type fakeSyncer struct {
	log     *callLog
	results []error
	calls   int
}

func (s *fakeSyncer) Sync(context.Context) error {
	s.log.add("sync")
	s.calls++
	if len(s.results) == 0 {
		return nil
	}
	err := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return err
}

// hasher digests a PIN as "digest:<pin>".
type hasher struct{ err error }

func (h hasher) Hash(_ context.Context, pin string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "digest:" + pin, nil
}

func (h hasher) Compare(_ context.Context, digest, pin string) error {
	if strings.TrimPrefix(digest, "digest:") != pin {
		return cryptox.ErrMismatch
	}
	return nil
}

type fakeFiles struct {
	log *callLog
	res filestorage.ClearResult
}

func (f *fakeFiles) ClearAllFiles(context.Context) filestorage.ClearResult {
	f.log.add("clear_files")
	return f.res
}

type fakeAnalytics struct {
	log     *callLog
	pending map[string]int
	cleared map[string]int
	reason  string
}

func (a *fakeAnalytics) ReportPendingRecordsFound(_ context.Context, counts map[string]int) {
	a.log.add("report_pending")
	a.pending = counts
}

func (a *fakeAnalytics) ReportDataCleared(_ context.Context, counts map[string]int, reason string) {
	a.cleared, a.reason = counts, reason
}

func (a *fakeAnalytics) ClearUserID(context.Context) {
	a.log.add("clear_user_id")
}

var errBoom = errors.New("boom")
