package integration

import (
	"net/http"
	"testing"

	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RefreshRotationAndReuseDetection(t *testing.T) {
	srv := newFlowServer(t)
	first := srv.Register("rotate@example.com")

	w := srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   handler.RefreshTokenRequest{RefreshToken: first.Token.RefreshToken},
	})
	second := decode[handler.AuthResponse](t, w, http.StatusOK).Data
	require.NotEqual(t, first.Token.RefreshToken, second.Token.RefreshToken)

	// Replaying the rotated token revokes the family
	w = srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   handler.RefreshTokenRequest{RefreshToken: first.Token.RefreshToken},
	})
	assert.Equal(t, "TOKEN_REUSED", errorCode(t, w, http.StatusUnauthorized))

	w = srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   handler.RefreshTokenRequest{RefreshToken: second.Token.RefreshToken},
	})
	assert.Equal(t, "TOKEN_REUSED", errorCode(t, w, http.StatusUnauthorized))

	// Password sign in starts a new family
	w = srv.Login("rotate@example.com", testPassword, "")
	decode[handler.AuthResponse](t, w, http.StatusOK)
}

func TestAuth_LockoutAfterRepeatedFailures(t *testing.T) {
	srv := newFlowServer(t, WithMaxLoginAttempts(3))
	srv.Register("locked@example.com")

	for i := 0; i < 2; i++ {
		w := srv.Login("locked@example.com", "wrong-password-1", "")
		assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w, http.StatusUnauthorized))
	}
	w := srv.Login("locked@example.com", "wrong-password-1", "")
	assert.Equal(t, "ACCOUNT_LOCKED", errorCode(t, w, http.StatusLocked))

	w = srv.Login("locked@example.com", testPassword, "")
	assert.Equal(t, "ACCOUNT_LOCKED", errorCode(t, w, http.StatusLocked), "the right password does not bypass a lock")

	// Unknown accounts look like bad passwords
	w = srv.Login("nobody@example.com", testPassword, "")
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w, http.StatusUnauthorized))
}

func TestAuth_LogoutRevokesTokens(t *testing.T) {
	srv := newFlowServer(t)
	session := srv.Register("bye@example.com")
	token := session.Token.AccessToken

	w := srv.Do(Request{Method: http.MethodGet, Path: "/auth/me", Token: token})
	me := decode[handler.UserResponse](t, w, http.StatusOK).Data
	assert.Equal(t, "bye@example.com", me.Email)
	assert.Equal(t, "customer", me.Role)

	w = srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Token:  token,
		Body:   handler.LogoutRequest{RefreshToken: session.Token.RefreshToken},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.Do(Request{Method: http.MethodGet, Path: "/auth/me", Token: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   handler.RefreshTokenRequest{RefreshToken: session.Token.RefreshToken},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_DuplicateRegistration(t *testing.T) {
	srv := newFlowServer(t)
	srv.Register("twice@example.com")

	w := srv.Do(Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body: handler.RegisterRequest{
			Email:    "TWICE@example.com",
			Password: testPassword,
			FullName: "Second Try",
		},
	})
	assert.Equal(t, "EMAIL_TAKEN", errorCode(t, w, http.StatusConflict))
}
