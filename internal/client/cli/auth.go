package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/session"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// userError is shown to the user verbatim.
type userError string

func (e userError) Error() string { return string(e) }

func newLoginCommand(e *env) *cobra.Command {
	var phone, otp string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a phone number, PIN and one-time password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			phone, err := e.prompt.TextOr(phone, "Phone number")
			if err != nil {
				return err
			}
			u, err := e.app.Session.FindExistingUser(ctx, phone)
			if errors.Is(err, common.ErrNotFound) {
				return userError(fmt.Sprintf("No account uses %s. Run `clinic register` first.", phone))
			}
			if err != nil {
				return err
			}

			pin, err := e.prompt.PIN("PIN")
			if err != nil {
				return err
			}
			if err := e.app.Session.SaveOngoingLoginEntry(ctx, models.OngoingLoginEntry{
				UserID:      u.ID,
				PhoneNumber: phone,
				PIN:         pin,
			}); err != nil {
				return err
			}
			if err := e.app.Session.RequestLoginOTP(ctx); err != nil {
				return err
			}
			warn(e.out, "A one-time password was sent to %s.", phone)

			otp, err := e.prompt.TextOr(otp, "One-time password")
			if err != nil {
				return err
			}
			if err := e.app.Session.LoginWithOTP(ctx, otp); err != nil {
				return err
			}
			success(e.out, "Logged in as %s.", u.FullName)
			e.reportApproval(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number of the account")
	cmd.Flags().StringVar(&otp, "otp", "", "one-time password, prompted when empty")
	return cmd
}

func newRegisterCommand(e *env) *cobra.Command {
	var name, phone string
	var facilities []string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			name, err := e.prompt.TextOr(name, "Full name")
			if err != nil {
				return err
			}
			phone, err := e.prompt.TextOr(phone, "Phone number")
			if err != nil {
				return err
			}
			if len(facilities) == 0 {
				f, err := e.prompt.Text("Facility ID")
				if err != nil {
					return err
				}
				facilities = []string{f}
			}
			ids, err := parseIDs(facilities)
			if err != nil {
				return err
			}
			pin, err := e.prompt.NewPIN()
			if err != nil {
				return err
			}

			if err := e.app.Session.SaveOngoingRegistrationEntry(ctx, models.OngoingRegistrationEntry{
				UserID:      uuid.New(),
				FullName:    name,
				PhoneNumber: phone,
				PIN:         pin,
				FacilityIDs: ids,
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				return err
			}
			if err := e.app.Session.Register(ctx); err != nil {
				return err
			}
			success(e.out, "Registered %s.", name)
			e.reportApproval(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringSliceVar(&facilities, "facility", nil, "facility id, repeatable")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the account and every record from this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			counts, err := e.app.PendingSyncRecords(ctx)
			if err != nil {
				return err
			}
			if total := printCounts(e.out, counts); total > 0 {
				warn(e.out, "%d records were not synced and will be lost.", total)
				if !yes {
					ok, err := e.prompt.Confirm("Log out anyway?")
					if err != nil {
						return err
					}
					if !ok {
						warn(e.out, "Logout cancelled.")
						return nil
					}
				}
			}

			if err := e.app.Session.Logout(ctx); err != nil {
				return err
			}
			success(e.out, "Logged out.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask about unsynced records")
	return cmd
}

func newResetPinCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-pin",
		Short: "Choose a new PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.resetPin(cmd.Context())
		},
	}
}

func newForgotPinCommand(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "forgot-pin",
		Short: "Clear the records on this device and choose a new PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !yes {
				ok, err := e.prompt.Confirm("Records on this device are synced once more and then deleted. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					warn(e.out, "Nothing changed.")
					return nil
				}
			}
			if err := e.app.Session.StartForgotPinFlow(ctx); err != nil {
				return err
			}
			warn(e.out, "Local records cleared.")
			return e.resetPin(ctx)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func newUnlockCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "unlock",
		Aliases: []string{"verify-pin"},
		Short:   "Check the PIN of the logged in user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pin, err := e.prompt.Secret("PIN")
			if err != nil {
				return err
			}
			st, err := e.app.Session.VerifyPin(cmd.Context(), pin)
			if errors.Is(err, session.ErrPinMismatch) {
				if st.Blocked {
					warn(e.out, "PIN entry is blocked until %s.", st.BlockedUntil.Local().Format("15:04"))
				} else {
					warn(e.out, "%d attempts remaining.", st.AttemptsRemaining)
				}
			}
			if err != nil {
				return err
			}
			success(e.out, "PIN accepted.")
			return nil
		},
	}
}

func newRefreshCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the account status from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := e.app.Session.RefreshLoggedInUser(ctx); err != nil {
				return err
			}
			e.reportApproval(ctx)
			return nil
		},
	}
}

// resetPin sends a new PIN and, when the server already approved it, moves
// the session back to logged in.
func (e *env) resetPin(ctx context.Context) error {
	pin, err := e.prompt.NewPIN()
	if err != nil {
		return err
	}
	if err := e.app.Session.ResetPin(ctx, pin); err != nil {
		return err
	}
	success(e.out, "New PIN sent.")

	if err := e.app.Session.RefreshLoggedInUser(ctx); err != nil {
		e.logger.Warn(ctx, "refresh after pin reset failed", "error", err)
	}
	e.reportApproval(ctx)
	return nil
}

func (e *env) reportApproval(ctx context.Context) {
	u, err := e.app.Session.LoggedInUser(ctx)
	if err != nil {
		return
	}
	switch {
	case u.LoggedInStatus == models.LoggedInStatusResetPinRequested:
		warn(e.out, "Waiting for the new PIN to be approved. Run `clinic refresh` later.")
	case u.Status == models.UserStatusWaitingForApproval:
		warn(e.out, "Your account is waiting for approval; records stay on this device until then.")
	case u.Status == models.UserStatusDisapprovedForSyncing:
		warn(e.out, "Your account is not allowed to sync.")
	}
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, userError(fmt.Sprintf("%q is not a valid id.", v))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
