// Package users implements account registration, OTP login, PIN reset and
// sync approval for the reference server.
package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/cryptox"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/auth"
	"github.com/dmitrijs2005/clinicsync/internal/server/config"
	"github.com/dmitrijs2005/clinicsync/internal/server/store"
	"github.com/google/uuid"
)

// Sync approval statuses.
const (
	StatusAllowed   = "allowed"
	StatusRequested = "requested"
	StatusDenied    = "denied"
)

type Service struct {
	repo                        store.UserStore
	hasher                      cryptox.PasswordHasher
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	otp                         string
	autoApprove                 bool
	now                         func() time.Time
}

func NewService(repo store.UserStore, cfg *config.Config, l logging.Logger) *Service {
	if l == nil {
		l = logging.Nop()
	}
	return &Service{
		repo:                        repo,
		hasher:                      cryptox.NewBcryptHasher(0),
		logger:                      l.With("module", "users"),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		otp:                         cfg.OTP,
		autoApprove:                 cfg.AutoApprove,
		now:                         time.Now,
	}
}

func (s *Service) initialStatus() string {
	if s.autoApprove {
		return StatusAllowed
	}
	return StatusRequested
}

func toPayload(u *store.User) rpc.User {
	return rpc.User{
		ID:          u.ID,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		PinDigest:   u.PinDigest,
		Status:      u.Status,
		FacilityIDs: u.FacilityIDs,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (s *Service) authResponse(u *store.User) (*rpc.AuthResponse, error) {
	token, err := auth.GenerateToken(u.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnexpected, err)
	}
	return &rpc.AuthResponse{AccessToken: token, User: toPayload(u)}, nil
}

// RequestOTP "sends" the OTP. There is no SMS gateway: the configured OTP
// is logged at debug level.
func (s *Service) RequestOTP(ctx context.Context, userID uuid.UUID) error {
	u, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Debug(ctx, "otp requested", "user_id", u.ID.String(), "otp", s.otp)
	return nil
}

// Login checks the OTP and the PIN against the stored digest. Every
// mismatch, unknown phone numbers included, is common.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, phone, pin, otp string) (*rpc.AuthResponse, error) {
	u, err := s.repo.UserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(otp), []byte(s.otp)) != 1 {
		return nil, fmt.Errorf("%w: otp mismatch", common.ErrUnauthorized)
	}
	if err := s.hasher.Compare(ctx, u.PinDigest, pin); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return nil, fmt.Errorf("%w: pin mismatch", common.ErrUnauthorized)
		}
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", u.ID.String())
	return s.authResponse(u)
}

// Register creates the account described by p. The client chooses the id
// and sends the PIN as a digest.
func (s *Service) Register(ctx context.Context, p rpc.User) (*rpc.AuthResponse, error) {
	switch {
	case p.ID == uuid.Nil:
		return nil, fmt.Errorf("%w: id is required", common.ErrValidation)
	case p.PhoneNumber == "":
		return nil, fmt.Errorf("%w: phone number is required", common.ErrValidation)
	case p.FullName == "":
		return nil, fmt.Errorf("%w: full name is required", common.ErrValidation)
	case p.PinDigest == "":
		return nil, fmt.Errorf("%w: pin digest is required", common.ErrValidation)
	}

	now := s.now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	u := store.User{
		ID:          p.ID,
		FullName:    p.FullName,
		PhoneNumber: p.PhoneNumber,
		PinDigest:   p.PinDigest,
		Status:      s.initialStatus(),
		FacilityIDs: p.FacilityIDs,
		CreatedAt:   created,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID.String(), "status", u.Status)
	return s.authResponse(&u)
}

// FindUser looks the user up by id, or by phone number when the id is nil.
func (s *Service) FindUser(ctx context.Context, req rpc.FindUserRequest) (*rpc.User, error) {
	var (
		u   *store.User
		err error
	)
	switch {
	case req.ID != uuid.Nil:
		u, err = s.repo.UserByID(ctx, req.ID)
	case req.PhoneNumber != "":
		u, err = s.repo.UserByPhone(ctx, req.PhoneNumber)
	default:
		return nil, fmt.Errorf("%w: id or phone number is required", common.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	p := toPayload(u)
	return &p, nil
}

// ResetPin stores a new digest for the user. Unless users are approved
// automatically, the account waits for approval again.
func (s *Service) ResetPin(ctx context.Context, userID uuid.UUID, digest string) (*rpc.AuthResponse, error) {
	if digest == "" {
		return nil, fmt.Errorf("%w: pin digest is required", common.ErrValidation)
	}
	u, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}

	u.PinDigest = digest
	u.Status = s.initialStatus()
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "pin reset", "user_id", u.ID.String(), "status", u.Status)
	return s.authResponse(u)
}

// Approve sets the sync approval status of a user.
func (s *Service) Approve(ctx context.Context, userID uuid.UUID, status string) (*rpc.User, error) {
	switch status {
	case StatusAllowed, StatusRequested, StatusDenied:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, status)
	}

	u, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Status = status
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateUser(ctx, *u); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user approval changed", "user_id", u.ID.String(), "status", status)
	p := toPayload(u)
	return &p, nil
}
