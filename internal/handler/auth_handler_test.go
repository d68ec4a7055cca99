package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrakech-reviews/service-community/internal/application"
)

func TestAuthHandler_RegisterLoginLogout(t *testing.T) {
	s := newServer(t)
	reg := s.signup(t, "touria")
	assert.Equal(t, "100", reg.Account.Balance.String())

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "touria", "email": "touria@example.com", "password": "Secret123", "first_name": "T", "last_name": "U",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "touria@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login application.AuthDTO
	require.NoError(t, json.Unmarshal(env.Data, &login))

	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me application.AccountDTO
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "touria", me.Username)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_INVALID", env.Error.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", reg.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, "only the revoked token stops working")
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	s := newServer(t)
	s.signup(t, "driss")

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "driss@example.com", "password": "Wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "driss@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestGates(t *testing.T) {
	s := newServer(t)
	user := s.signup(t, "gated")

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		code   string
	}{
		{"missing token", "/api/v1/wallet", "", http.StatusUnauthorized, "TOKEN_MISSING"},
		{"garbage token", "/api/v1/wallet", "not-a-jwt", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"refresh token as access", "/api/v1/wallet", user.RefreshToken, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"user on admin route", "/api/v1/admin/stats", user.AccessToken, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"user on moderator route", "/api/v1/coupons/admin", user.AccessToken, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}
