// Package cryptox holds the credential hashing and random-token helpers shared
// by the client engine and the reference server.
package cryptox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Compare when the PIN does not match the digest.
var ErrMismatch = errors.New("pin does not match digest")

// PasswordHasher turns a PIN into a storable digest and checks candidates
// against it. Hashing is slow by construction so it takes a context.
type PasswordHasher interface {
	Hash(ctx context.Context, pin string) (string, error)
	Compare(ctx context.Context, digest, pin string) error
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(ctx context.Context, pin string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pin), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(ctx context.Context, digest, pin string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("compare pin: %w", err)
	}
	return nil
}

// MakeRandHexString returns 2*size hex characters from crypto/rand.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomDigits returns an n-digit numeric code, e.g. a login OTP.
func RandomDigits(n int) (string, error) {
	out := make([]byte, n)
	ten := big.NewInt(10)
	for i := range out {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
