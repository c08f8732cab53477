package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lombarde1/backtunder/internal/auth"
	"github.com/lombarde1/backtunder/internal/model"
)

const testSecret = "test-secret"

func protectedEcho(t *testing.T, wantUser uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r)
		require.NoError(t, err)
		assert.Equal(t, wantUser, userID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, model.RoleUser, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Auth(testSecret)(protectedEcho(t, userID)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejects(t *testing.T) {
	valid, err := auth.GenerateToken(uuid.New(), model.RoleUser, testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Token abc"},
		{"garbage token", "Bearer abc.def.ghi"},
		{"wrong secret", "Bearer " + mustSign(t, "other-secret")},
		{"valid prefix stripped twice", "Bearer" + valid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			called := false
			Auth(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func mustSign(t *testing.T, secret string) string {
	t.Helper()
	token, err := auth.GenerateToken(uuid.New(), model.RoleUser, secret)
	require.NoError(t, err)
	return token
}

func TestAdminOnly(t *testing.T) {
	adminToken, err := auth.GenerateToken(uuid.New(), model.RoleAdmin, testSecret)
	require.NoError(t, err)
	userToken, err := auth.GenerateToken(uuid.New(), model.RoleUser, testSecret)
	require.NoError(t, err)

	handler := Auth(testSecret)(AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
