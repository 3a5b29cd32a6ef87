// Package session is the user session state machine of the client engine:
// login, registration, PIN reset, refresh, logout and the transition to
// UNAUTHORIZED when the server rejects the device credential.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/filestorage"
	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/users"
	"github.com/dmitrijs2005/clinicsync/internal/client/security"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/cryptox"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/google/uuid"
)

const (
	keyAccessToken         = "access_token"
	keyOngoingLogin        = "ongoing_login_entry"
	keyOngoingRegistration = "ongoing_registration_entry"
	keyOnboardingComplete  = "onboarding_complete"
)

// UserAPI is the remote user service.
type UserAPI interface {
	RequestOTP(ctx context.Context, userID uuid.UUID) error
	Login(ctx context.Context, phoneNumber, pin, otp string) (*rpc.AuthResponse, error)
	Register(ctx context.Context, u rpc.User) (*rpc.AuthResponse, error)
	FindUser(ctx context.Context, req rpc.FindUserRequest) (*rpc.User, error)
	ResetPin(ctx context.Context, pinDigest string) (*rpc.AuthResponse, error)
}

type Syncer interface {
	Sync(ctx context.Context) error
}

// DataStore is the local database as a whole.
type DataStore interface {
	ClearClinicalData(ctx context.Context) (map[string]int, error)
	ClearAll(ctx context.Context) error
	PendingSyncRecordCounts(ctx context.Context) (map[string]int, error)
}

type FileStorage interface {
	ClearAllFiles(ctx context.Context) filestorage.ClearResult
}

type BruteForce interface {
	IncrementFailedAttempt(ctx context.Context) error
	ResetFailedAttempts(ctx context.Context) error
	State(ctx context.Context) (security.State, error)
}

// Analytics receives the session events worth reporting.
type Analytics interface {
	ReportPendingRecordsFound(ctx context.Context, counts map[string]int)
	ReportDataCleared(ctx context.Context, counts map[string]int, reason string)
	ClearUserID(ctx context.Context)
}

type Deps struct {
	Users       users.Repository
	Preferences metadata.Repository
	Store       DataStore
	API         UserAPI
	Syncer      Syncer
	Hasher      cryptox.PasswordHasher
	Files       FileStorage
	BruteForce  BruteForce
	Analytics   Analytics
	// PullTokenKeys are the preference keys of the sync resume tokens.
	PullTokenKeys []string
}

type Config struct {
	// ResetPinSyncRetries bounds the retries of the sync that precedes the
	// forgot-PIN data wipe.
	ResetPinSyncRetries int
	RetryDelay          time.Duration
}

func DefaultConfig() Config {
	return Config{ResetPinSyncRetries: 3, RetryDelay: 2 * time.Second}
}

type Option func(*Session)

func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type Session struct {
	deps   Deps
	cfg    Config
	logger logging.Logger
	now    func() time.Time
	states *broadcaster
}

func New(deps Deps, cfg Config, opts ...Option) *Session {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.ResetPinSyncRetries < 0 {
		cfg.ResetPinSyncRetries = 0
	}
	s := &Session{
		deps:   deps,
		cfg:    cfg,
		logger: logging.Nop(),
		now:    time.Now,
		states: newBroadcaster(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "session")
	return s
}

// LoggedInUser returns common.ErrNotFound when nobody is logged in.
func (s *Session) LoggedInUser(ctx context.Context) (*models.User, error) {
	return s.deps.Users.LoggedInUser(ctx)
}

// LoggedInStatus is NOT_LOGGED_IN when no user is stored.
func (s *Session) LoggedInStatus(ctx context.Context) (models.LoggedInStatus, error) {
	return s.deps.Users.LoggedInStatus(ctx)
}

// CanSync reports whether the session state allows a sync cycle.
func (s *Session) CanSync(ctx context.Context) bool {
	st, err := s.LoggedInStatus(ctx)
	return err == nil && st.CanSync()
}

// CanSyncData reports whether the user is logged in and approved to sync.
func (s *Session) CanSyncData(ctx context.Context) bool {
	u, err := s.LoggedInUser(ctx)
	return err == nil && canSyncData(u)
}

func canSyncData(u *models.User) bool {
	return u != nil &&
		u.LoggedInStatus == models.LoggedInStatusLoggedIn &&
		u.Status == models.UserStatusApprovedForSyncing
}

// AccessToken returns the stored access token, empty when there is none.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	tok, _, err := metadata.GetString(ctx, s.deps.Preferences, keyAccessToken)
	return tok, err
}

func (s *Session) setAccessToken(ctx context.Context, token string) error {
	if err := metadata.SetString(ctx, s.deps.Preferences, keyAccessToken, token); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	return nil
}

// Subscribe streams the logged in user, starting with the current one. A nil
// value means nobody is logged in. The channel closes when ctx is done.
func (s *Session) Subscribe(ctx context.Context) <-chan *models.User {
	ch := s.states.subscribe(ctx)
	s.publishCurrent(ctx)
	return ch
}

// IsUserUnauthorized streams whether the session is UNAUTHORIZED, emitting
// only on change.
func (s *Session) IsUserUnauthorized(ctx context.Context) <-chan bool {
	in := s.Subscribe(ctx)
	out := make(chan bool)
	go func() {
		defer close(out)
		var last, started bool
		for u := range in {
			v := u != nil && u.LoggedInStatus == models.LoggedInStatusUnauthorized
			if started && v == last {
				continue
			}
			select {
			case out <- v:
				last, started = v, true
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// publishCurrent re-reads the user and hands it to subscribers.
func (s *Session) publishCurrent(ctx context.Context) {
	u, err := s.deps.Users.LoggedInUser(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.states.publish(nil)
	case err != nil:
		s.logger.Warn(ctx, "read logged in user failed", "error", err)
	default:
		s.states.publish(u)
	}
}

// MarkUnauthorized moves the stored user to UNAUTHORIZED. The transport calls
// it when the server rejects the access token.
func (s *Session) MarkUnauthorized(ctx context.Context) {
	u, err := s.deps.Users.LoggedInUser(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(ctx, "mark unauthorized: read user", "error", err)
		}
		return
	}
	if u.LoggedInStatus == models.LoggedInStatusUnauthorized {
		return
	}
	if err := s.deps.Users.SetLoggedInStatus(ctx, u.ID, models.LoggedInStatusUnauthorized); err != nil {
		s.logger.Error(ctx, "mark unauthorized", "error", err)
		return
	}
	s.logger.Warn(ctx, "access token rejected, session is unauthorized", "user_id", u.ID)
	s.publishCurrent(ctx)
}

// OnboardingComplete reports whether onboarding was completed on this
// device. It survives logout.
func (s *Session) OnboardingComplete(ctx context.Context) (bool, error) {
	v, _, err := metadata.GetString(ctx, s.deps.Preferences, keyOnboardingComplete)
	return v == "true", err
}

func (s *Session) SetOnboardingComplete(ctx context.Context) error {
	return metadata.SetString(ctx, s.deps.Preferences, keyOnboardingComplete, "true")
}

func (s *Session) SaveOngoingLoginEntry(ctx context.Context, e models.OngoingLoginEntry) error {
	return metadata.SetJSON(ctx, s.deps.Preferences, keyOngoingLogin, e)
}

// OngoingLoginEntry returns ErrNoOngoingLogin when no login is in progress.
func (s *Session) OngoingLoginEntry(ctx context.Context) (models.OngoingLoginEntry, error) {
	var e models.OngoingLoginEntry
	ok, err := metadata.GetJSON(ctx, s.deps.Preferences, keyOngoingLogin, &e)
	if err != nil {
		return e, err
	}
	if !ok {
		return e, ErrNoOngoingLogin
	}
	return e, nil
}

func (s *Session) ClearOngoingLoginEntry(ctx context.Context) error {
	return s.deps.Preferences.Delete(ctx, keyOngoingLogin)
}

func (s *Session) SaveOngoingRegistrationEntry(ctx context.Context, e models.OngoingRegistrationEntry) error {
	return metadata.SetJSON(ctx, s.deps.Preferences, keyOngoingRegistration, e)
}

// OngoingRegistrationEntry reports ok=false when no registration is in
// progress.
func (s *Session) OngoingRegistrationEntry(ctx context.Context) (e models.OngoingRegistrationEntry, ok bool, err error) {
	ok, err = metadata.GetJSON(ctx, s.deps.Preferences, keyOngoingRegistration, &e)
	return e, ok, err
}

func (s *Session) ClearOngoingRegistrationEntry(ctx context.Context) error {
	return s.deps.Preferences.Delete(ctx, keyOngoingRegistration)
}

func (s *Session) IsOngoingRegistrationEntryPresent(ctx context.Context) (bool, error) {
	_, ok, err := s.OngoingRegistrationEntry(ctx)
	return ok, err
}

// userFromPayload converts the server copy of a user.
func userFromPayload(p rpc.User, status models.LoggedInStatus) models.User {
	return models.User{
		ID:             p.ID,
		FullName:       p.FullName,
		PhoneNumber:    p.PhoneNumber,
		PinDigest:      p.PinDigest,
		Status:         models.UserStatus(p.Status),
		LoggedInStatus: status,
		FacilityIDs:    p.FacilityIDs,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
