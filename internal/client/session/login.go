package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
)

// remoteError folds a transport error into the outcomes the login and
// registration flows report: network, server or unexpected. A rejected
// credential is a server answer here, not a lost session.
func remoteError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, common.ErrNetwork):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrNotFound):
		return fmt.Errorf("%s: %w: %v", op, common.ErrServer, err)
	case errors.Is(err, common.ErrServer):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, common.ErrUnexpected, err)
	}
}

// RequestLoginOTP asks the server for a login OTP for the ongoing login and
// stores the user as OTP_REQUESTED.
func (s *Session) RequestLoginOTP(ctx context.Context) error {
	entry, err := s.OngoingLoginEntry(ctx)
	if err != nil {
		return err
	}

	if err := s.deps.API.RequestOTP(ctx, entry.UserID); err != nil {
		return remoteError("request otp", err)
	}

	u, err := s.deps.Users.LoggedInUser(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound) || (err == nil && u.ID != entry.UserID):
		now := s.now().UTC()
		u = &models.User{ID: entry.UserID, PhoneNumber: entry.PhoneNumber, CreatedAt: now, UpdatedAt: now}
	case err != nil:
		return err
	}
	u.LoggedInStatus = models.LoggedInStatusOTPRequested
	if err := s.deps.Users.Save(ctx, *u); err != nil {
		return fmt.Errorf("request otp: %w", err)
	}
	s.publishCurrent(ctx)
	return nil
}

// LoginWithOTP completes the ongoing login. On success the user and access
// token are stored, the ongoing entry is dropped and one sync cycle runs.
// The sync outcome does not affect the login result.
func (s *Session) LoginWithOTP(ctx context.Context, otp string) error {
	entry, err := s.OngoingLoginEntry(ctx)
	if err != nil {
		return err
	}

	resp, err := s.deps.API.Login(ctx, entry.PhoneNumber, entry.PIN, otp)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "error", err)
		return remoteError("login", err)
	}

	if err := s.storeAuthenticated(ctx, resp, models.LoggedInStatusLoggedIn); err != nil {
		return fmt.Errorf("login: %w: %v", common.ErrUnexpected, err)
	}
	if err := s.ClearOngoingLoginEntry(ctx); err != nil {
		s.logger.Warn(ctx, "clear ongoing login entry failed", "error", err)
	}

	s.syncAfterAuth(ctx)
	return nil
}

// Register creates the user from the ongoing registration entry and logs
// them in.
func (s *Session) Register(ctx context.Context) error {
	entry, ok, err := s.OngoingRegistrationEntry(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("register: %w: no registration in progress", common.ErrPrecondition)
	}

	digest, err := s.deps.Hasher.Hash(ctx, entry.PIN)
	if err != nil {
		return fmt.Errorf("register: %w: %v", common.ErrUnexpected, err)
	}

	now := s.now().UTC()
	created := entry.CreatedAt
	if created.IsZero() {
		created = now
	}
	resp, err := s.deps.API.Register(ctx, rpc.User{
		ID:          entry.UserID,
		FullName:    entry.FullName,
		PhoneNumber: entry.PhoneNumber,
		PinDigest:   digest,
		FacilityIDs: entry.FacilityIDs,
		CreatedAt:   created,
		UpdatedAt:   now,
	})
	if err != nil {
		return remoteError("register", err)
	}

	if err := s.storeAuthenticated(ctx, resp, models.LoggedInStatusLoggedIn); err != nil {
		return fmt.Errorf("register: %w: %v", common.ErrUnexpected, err)
	}
	if err := s.ClearOngoingRegistrationEntry(ctx); err != nil {
		s.logger.Warn(ctx, "clear ongoing registration entry failed", "error", err)
	}

	s.syncAfterAuth(ctx)
	return nil
}

func (s *Session) storeAuthenticated(ctx context.Context, resp *rpc.AuthResponse, status models.LoggedInStatus) error {
	if err := s.setAccessToken(ctx, resp.AccessToken); err != nil {
		return err
	}
	if err := s.deps.Users.Save(ctx, userFromPayload(resp.User, status)); err != nil {
		return err
	}
	s.publishCurrent(ctx)
	return nil
}

func (s *Session) syncAfterAuth(ctx context.Context) {
	if s.deps.Syncer == nil {
		return
	}
	if err := s.deps.Syncer.Sync(ctx); err != nil {
		s.logger.Warn(ctx, "sync after login failed", "error", err)
	}
}

// FindExistingUser looks up a registered user by phone number. An unknown
// number yields common.ErrNotFound; other failures are network or
// unexpected errors.
func (s *Session) FindExistingUser(ctx context.Context, phoneNumber string) (*models.User, error) {
	p, err := s.deps.API.FindUser(ctx, rpc.FindUserRequest{PhoneNumber: phoneNumber})
	switch {
	case err == nil:
		u := userFromPayload(*p, models.LoggedInStatusNotLoggedIn)
		return &u, nil
	case errors.Is(err, context.Canceled):
		return nil, err
	case errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", common.ErrNotFound)
	case errors.Is(err, common.ErrNetwork):
		return nil, fmt.Errorf("find user: %w", err)
	default:
		return nil, fmt.Errorf("find user: %w: %v", common.ErrUnexpected, err)
	}
}

// nextLoggedInStatus is the refresh lookup table: only a user waiting on a
// PIN reset who is now approved moves on, to LOGGED_IN.
func nextLoggedInStatus(current models.LoggedInStatus, server models.UserStatus) models.LoggedInStatus {
	if current == models.LoggedInStatusResetPinRequested && server == models.UserStatusApprovedForSyncing {
		return models.LoggedInStatusLoggedIn
	}
	return current
}

// RefreshLoggedInUser fetches the server copy of the logged in user and
// stores it with the status from the lookup table.
func (s *Session) RefreshLoggedInUser(ctx context.Context) error {
	local, err := s.deps.Users.LoggedInUser(ctx)
	if err != nil {
		return fmt.Errorf("refresh user: %w", err)
	}

	p, err := s.deps.API.FindUser(ctx, rpc.FindUserRequest{PhoneNumber: local.PhoneNumber})
	if err != nil {
		return fmt.Errorf("refresh user: %w", err)
	}

	status := nextLoggedInStatus(local.LoggedInStatus, models.UserStatus(p.Status))
	refreshed := userFromPayload(*p, status)
	if refreshed.PinDigest == "" {
		refreshed.PinDigest = local.PinDigest
	}
	if err := s.deps.Users.Save(ctx, refreshed); err != nil {
		return fmt.Errorf("refresh user: %w", err)
	}
	if status != local.LoggedInStatus {
		s.logger.Info(ctx, "logged in status changed on refresh", "from", string(local.LoggedInStatus), "to", string(status))
	}
	s.publishCurrent(ctx)
	return nil
}
