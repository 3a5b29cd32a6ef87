package models

import (
	"time"

	"github.com/google/uuid"
)

// LoggedInStatus is the local session phase.
type LoggedInStatus string

const (
	LoggedInStatusNotLoggedIn       LoggedInStatus = "NOT_LOGGED_IN"
	LoggedInStatusOTPRequested      LoggedInStatus = "OTP_REQUESTED"
	LoggedInStatusLoggedIn          LoggedInStatus = "LOGGED_IN"
	LoggedInStatusResettingPin      LoggedInStatus = "RESETTING_PIN"
	LoggedInStatusResetPinRequested LoggedInStatus = "RESET_PIN_REQUESTED"
	LoggedInStatusUnauthorized      LoggedInStatus = "UNAUTHORIZED"
)

// CanSync reports whether a sync cycle may start or continue in s.
func (s LoggedInStatus) CanSync() bool {
	switch s {
	case LoggedInStatusLoggedIn, LoggedInStatusResettingPin, LoggedInStatusResetPinRequested:
		return true
	}
	return false
}

// UserStatus is the server-side approval state of a user account.
type UserStatus string

const (
	UserStatusApprovedForSyncing    UserStatus = "allowed"
	UserStatusWaitingForApproval    UserStatus = "requested"
	UserStatusDisapprovedForSyncing UserStatus = "denied"
)

type User struct {
	ID             uuid.UUID      `json:"id"`
	FullName       string         `json:"full_name"`
	PhoneNumber    string         `json:"phone_number"`
	PinDigest      string         `json:"password_digest"`
	Status         UserStatus     `json:"sync_approval_status"`
	LoggedInStatus LoggedInStatus `json:"-"`
	FacilityIDs    []uuid.UUID    `json:"registration_facility_ids,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// OngoingLoginEntry holds the credentials typed in while a login is in
// progress.
type OngoingLoginEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	PIN         string    `json:"pin"`
}

// OngoingRegistrationEntry holds the details collected while a new user
// registers.
type OngoingRegistrationEntry struct {
	UserID      uuid.UUID   `json:"user_id"`
	FullName    string      `json:"full_name"`
	PhoneNumber string      `json:"phone_number"`
	PIN         string      `json:"pin"`
	FacilityIDs []uuid.UUID `json:"facility_ids"`
	CreatedAt   time.Time   `json:"created_at"`
}
