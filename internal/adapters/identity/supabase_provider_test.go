package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citasalud/bookingcore/internal/infrastructure/clients/supabase"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got := tokenExpiry(signedToken(t, exp))
	assert.True(t, got.Equal(exp))
}

func TestTokenExpiry_Garbage(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-token").IsZero())
	assert.True(t, tokenExpiry("").IsZero())
}

func TestToAuthResult_SessionIssued(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	resp := &supabase.AuthResponse{
		User: &supabase.User{ID: "user-1", Email: "ana@example.com"},
		Session: &supabase.Session{
			AccessToken:  signedToken(t, exp),
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
		},
	}

	result := toAuthResult(resp)

	assert.True(t, result.SessionIssued)
	require.NotNil(t, result.Identity)
	assert.Equal(t, "user-1", result.Identity.ID)
	assert.Equal(t, "refresh-1", result.Identity.RefreshToken)
	assert.True(t, result.Identity.ExpiresAt.Equal(exp))
}

func TestToAuthResult_ExpiresInFallback(t *testing.T) {
	// Opaque token with no decodable claims; expiry comes from ExpiresIn
	resp := &supabase.AuthResponse{
		User: &supabase.User{ID: "user-1", Email: "ana@example.com"},
		Session: &supabase.Session{
			AccessToken:  "opaque-token",
			RefreshToken: "refresh-1",
			ExpiresIn:    3600,
		},
	}

	before := time.Now()
	result := toAuthResult(resp)

	require.NotNil(t, result.Identity)
	assert.False(t, result.Identity.ExpiresAt.IsZero())
	assert.True(t, result.Identity.ExpiresAt.After(before.Add(59*time.Minute)))
}

func TestToAuthResult_NoSession(t *testing.T) {
	resp := &supabase.AuthResponse{
		User: &supabase.User{ID: "user-1", Email: "ana@example.com"},
	}

	result := toAuthResult(resp)

	assert.False(t, result.SessionIssued)
	assert.Nil(t, result.Identity)
}
