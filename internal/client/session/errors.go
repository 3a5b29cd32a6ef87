package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned by ResetPin when the server no longer
	// accepts the device credential.
	ErrUserNotFound = errors.New("user not found")

	ErrNoOngoingLogin = errors.New("no login in progress")
	ErrNoUser         = errors.New("no user on this device")
	ErrPinMismatch    = errors.New("incorrect pin")
	ErrBlocked        = errors.New("pin entry blocked")
)

// LogoutStage names the logout step that failed.
type LogoutStage string

const (
	LogoutStageFiles       LogoutStage = "clear_files"
	LogoutStagePreferences LogoutStage = "clear_preferences"
	LogoutStageOnboarding  LogoutStage = "mark_onboarding_complete"
	LogoutStageDatabase    LogoutStage = "clear_database"
)

// LogoutError reports the failed step and its cause. Steps after it did not
// run.
type LogoutError struct {
	Stage LogoutStage
	Err   error
}

func (e *LogoutError) Error() string {
	return fmt.Sprintf("logout failed at %s: %v", e.Stage, e.Err)
}

func (e *LogoutError) Unwrap() error { return e.Err }
