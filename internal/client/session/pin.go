package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/security"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/cryptox"
	"github.com/sethvargo/go-retry"
)

// ResetPin hashes pin and sends the digest to the server. Only a successful
// call updates the stored user (new digest, RESET_PIN_REQUESTED, server
// approval status) and the access token.
//
// Errors: common.ErrNetwork, ErrUserNotFound when the server rejects the
// device, common.ErrUnexpected otherwise.
func (s *Session) ResetPin(ctx context.Context, pin string) error {
	current, err := s.deps.Users.LoggedInUser(ctx)
	if err != nil {
		return fmt.Errorf("reset pin: %w: %v", common.ErrUnexpected, err)
	}

	digest, err := s.deps.Hasher.Hash(ctx, pin)
	if err != nil {
		return fmt.Errorf("reset pin: %w: %v", common.ErrUnexpected, err)
	}

	resp, err := s.deps.API.ResetPin(ctx, digest)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, common.ErrNetwork):
		return fmt.Errorf("reset pin: %w", err)
	case errors.Is(err, common.ErrUnauthorized):
		return fmt.Errorf("reset pin: %w", ErrUserNotFound)
	default:
		return fmt.Errorf("reset pin: %w: %v", common.ErrUnexpected, err)
	}

	updated := *current
	updated.PinDigest = digest
	updated.LoggedInStatus = models.LoggedInStatusResetPinRequested
	updated.Status = models.UserStatus(resp.User.Status)
	if err := s.deps.Users.Save(ctx, updated); err != nil {
		return fmt.Errorf("reset pin: %w: %v", common.ErrUnexpected, err)
	}
	if err := s.setAccessToken(ctx, resp.AccessToken); err != nil {
		return fmt.Errorf("reset pin: %w: %v", common.ErrUnexpected, err)
	}

	s.publishCurrent(ctx)
	return nil
}

// SyncAndClearData pushes what it can before wiping the clinical records:
// one sync plus up to retryCount retries, then the wipe runs whatever the
// sync outcome. Resume tokens are dropped so the next login pulls
// everything again, and the brute-force counters are reset.
func (s *Session) SyncAndClearData(ctx context.Context, retryCount int) error {
	if retryCount < 0 {
		retryCount = 0
	}

	if s.deps.Syncer != nil {
		b := retry.WithMaxRetries(uint64(retryCount), retry.NewConstant(s.cfg.RetryDelay))
		attempt := 0
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			attempt++
			if err := s.deps.Syncer.Sync(ctx); err != nil {
				s.logger.Warn(ctx, "sync before data wipe failed", "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			s.logger.Warn(ctx, "clearing data without a successful sync", "attempts", attempt, "error", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	counts, err := s.deps.Store.ClearClinicalData(ctx)
	if err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	if err := s.deps.Preferences.Delete(ctx, s.deps.PullTokenKeys...); err != nil {
		return fmt.Errorf("clear pull tokens: %w", err)
	}
	if s.deps.BruteForce != nil {
		if err := s.deps.BruteForce.ResetFailedAttempts(ctx); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
	}

	if s.deps.Analytics != nil {
		s.deps.Analytics.ReportDataCleared(ctx, counts, "forgot_pin")
	}
	s.logger.Info(ctx, "clinical data cleared", "counts", counts)
	return nil
}

// StartForgotPinFlow wipes local clinical data (after a bounded sync) and
// moves the user to RESETTING_PIN.
func (s *Session) StartForgotPinFlow(ctx context.Context) error {
	u, err := s.deps.Users.LoggedInUser(ctx)
	if err != nil {
		return fmt.Errorf("forgot pin: %w", err)
	}
	if err := s.SyncAndClearData(ctx, s.cfg.ResetPinSyncRetries); err != nil {
		return fmt.Errorf("forgot pin: %w", err)
	}
	if err := s.deps.Users.SetLoggedInStatus(ctx, u.ID, models.LoggedInStatusResettingPin); err != nil {
		return fmt.Errorf("forgot pin: %w", err)
	}
	s.publishCurrent(ctx)
	return nil
}

// VerifyPin checks pin against the stored digest under brute-force
// protection. It returns the protection state after the attempt: ErrBlocked
// while blocked, ErrPinMismatch for a wrong PIN.
func (s *Session) VerifyPin(ctx context.Context, pin string) (security.State, error) {
	st, err := s.deps.BruteForce.State(ctx)
	if err != nil {
		return st, err
	}
	if st.Blocked {
		return st, fmt.Errorf("%w until %s", ErrBlocked, st.BlockedUntil.Format("15:04"))
	}

	u, err := s.deps.Users.LoggedInUser(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return st, ErrNoUser
	}
	if err != nil {
		return st, err
	}

	err = s.deps.Hasher.Compare(ctx, u.PinDigest, pin)
	switch {
	case err == nil:
		if err := s.deps.BruteForce.ResetFailedAttempts(ctx); err != nil {
			return st, err
		}
		return s.deps.BruteForce.State(ctx)
	case errors.Is(err, cryptox.ErrMismatch):
		if err := s.deps.BruteForce.IncrementFailedAttempt(ctx); err != nil {
			return st, err
		}
		st, err := s.deps.BruteForce.State(ctx)
		if err != nil {
			return st, err
		}
		return st, ErrPinMismatch
	default:
		return st, err
	}
}
