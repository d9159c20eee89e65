package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validClaims(sub string) Claims {
	return Claims{
		Email: "fan@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyHeader(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Sign(validClaims("user-1"))
	require.NoError(t, err)

	user, err := v.VerifyHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "user-1", Email: "fan@example.com"}, user)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret")

	other, err := NewVerifier("other").Sign(validClaims("user-1"))
	require.NoError(t, err)

	expiredClaims := validClaims("user-1")
	expiredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, err := v.Sign(expiredClaims)
	require.NoError(t, err)

	noSubject, err := v.Sign(validClaims(""))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("user-1")).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing header", "", ErrMissingToken},
		{"wrong scheme", "Basic abc", ErrMissingToken},
		{"wrong secret", "Bearer " + other, ErrInvalidToken},
		{"expired", "Bearer " + expired, ErrInvalidToken},
		{"no subject", "Bearer " + noSubject, ErrInvalidToken},
		{"alg none", "Bearer " + none, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyHeader(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	user := &User{ID: "user-1"}
	assert.Equal(t, user, FromContext(WithUser(ctx, user)))
}
