package cryptox

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	ctx := context.Background()

	digest, err := h.Hash(ctx, "1234")
	require.NoError(t, err)
	assert.NotEqual(t, "1234", digest)

	require.NoError(t, h.Compare(ctx, digest, "1234"))
	require.ErrorIs(t, h.Compare(ctx, digest, "4321"), ErrMismatch)
}

func TestBcryptHasher_CanceledContext(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "1234")
	require.ErrorIs(t, err, context.Canceled)
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
}

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(16)
	require.NoError(t, err)
	require.Len(t, s, 32)
	_, err = hex.DecodeString(s)
	require.NoError(t, err)
}

func TestRandomDigits(t *testing.T) {
	s, err := RandomDigits(6)
	require.NoError(t, err)
	require.Len(t, s, 6)
	for _, c := range s {
		require.True(t, c >= '0' && c <= '9')
	}
}
