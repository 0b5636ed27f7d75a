package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity/entity"
)

func TestRegisterValidation(t *testing.T) {
	svc := NewService(nil, nil, BcryptHasher{Cost: bcrypt.MinCost})

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "pw", PasswordConfirmation: "pw"}},
		{"missing password", RegisterInput{Email: "a@b.test"}},
		{"confirmation mismatch", RegisterInput{Email: "a@b.test", Password: "pw1", PasswordConfirmation: "pw2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			assert.ErrorIs(t, err, httperr.ErrValidation)
		})
	}
}

func TestChangePasswordValidation(t *testing.T) {
	svc := NewService(nil, nil, BcryptHasher{Cost: bcrypt.MinCost})

	err := svc.ChangePassword(context.Background(), 1, "newpw", "different")
	assert.ErrorIs(t, err, httperr.ErrValidation)

	err = svc.ChangePassword(context.Background(), 1, "", "")
	assert.ErrorIs(t, err, httperr.ErrValidation)
}

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	assert.True(t, h.Verify(hash, "s3cret"))
	assert.False(t, h.Verify(hash, "wrong"))
	assert.False(t, h.Verify("not-a-hash", "s3cret"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.test", entity.NormalizeEmail("  User@Example.TEST "))
}
