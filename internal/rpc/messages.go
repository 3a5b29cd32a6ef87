package rpc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PushRequest carries every locally pending record of one resource.
type PushRequest[T any] struct {
	Records []T `json:"records"`
}

// ValidationError names a pushed record the server refused to store.
type ValidationError struct {
	ID     uuid.UUID           `json:"id"`
	Fields map[string][]string `json:"fields,omitempty"`
}

type PushResponse struct {
	Errors []ValidationError `json:"errors,omitempty"`
}

// PullRequest asks for up to Limit records changed after ProcessToken.
// An empty token means from the beginning.
type PullRequest struct {
	Limit        int    `json:"limit"`
	ProcessToken string `json:"process_token,omitempty"`
}

type PullResponse[T any] struct {
	Records      []T    `json:"records"`
	ProcessToken string `json:"process_token"`
}

// RecordEnvelope is the part of every record the server needs to index it.
type RecordEnvelope struct {
	ID        uuid.UUID  `json:"id"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// RawRecord keeps a record opaque to the server.
type RawRecord = json.RawMessage

// User is the account as the server sees it.
type User struct {
	ID          uuid.UUID   `json:"id"`
	FullName    string      `json:"full_name"`
	PhoneNumber string      `json:"phone_number"`
	PinDigest   string      `json:"password_digest"`
	Status      string      `json:"sync_approval_status"`
	FacilityIDs []uuid.UUID `json:"registration_facility_ids,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type RequestOtpRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

type Empty struct{}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	PIN         string `json:"password"`
	OTP         string `json:"otp"`
}

// AuthResponse is returned by every call that issues an access token.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type RegisterRequest struct {
	User User `json:"user"`
}

// FindUserRequest looks a user up by id or, when the id is nil, by phone
// number.
type FindUserRequest struct {
	ID          uuid.UUID `json:"id"`
	PhoneNumber string    `json:"phone_number,omitempty"`
}

type FindUserResponse struct {
	User User `json:"user"`
}

type ResetPinRequest struct {
	PinDigest string `json:"password_digest"`
}

type ApproveRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"sync_approval_status"`
}
