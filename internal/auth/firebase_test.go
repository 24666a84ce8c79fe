package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "ems-test"

func newKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	now := time.Now()
	return Claims{
		Email:         "hr@ems.test",
		EmailVerified: true,
		Name:          "Hana",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "firebase-uid-1",
			Issuer:    issuerPrefix + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	key := newKeyPair(t)
	v := NewVerifier(testProject, func(*jwt.Token) (any, error) { return &key.PublicKey, nil })

	caller, err := v.Verify(context.Background(), sign(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", caller.UID)
	assert.Equal(t, "hr@ems.test", caller.Email)
	assert.True(t, caller.EmailVerified)
	assert.Equal(t, "hr@ems.test", caller.Identity())
}

func TestVerifierRejects(t *testing.T) {
	key := newKeyPair(t)
	other := newKeyPair(t)
	v := NewVerifier(testProject, func(*jwt.Token) (any, error) { return &key.PublicKey, nil })

	tests := []struct {
		name  string
		token func() string
	}{
		{
			name: "expired",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
				return sign(t, key, c)
			},
		},
		{
			name: "wrong audience",
			token: func() string {
				c := validClaims()
				c.Audience = jwt.ClaimStrings{"another-project"}
				return sign(t, key, c)
			},
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := validClaims()
				c.Issuer = "https://accounts.example.com"
				return sign(t, key, c)
			},
		},
		{
			name: "missing subject",
			token: func() string {
				c := validClaims()
				c.Subject = ""
				return sign(t, key, c)
			},
		},
		{
			name:  "foreign key",
			token: func() string { return sign(t, other, validClaims()) },
		},
		{
			name: "hmac signed",
			token: func() string {
				signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
				require.NoError(t, err)
				return signed
			},
		},
		{
			name:  "garbage",
			token: func() string { return "not.a.token" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token())
			assert.Error(t, err)
		})
	}
}
