package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore/internal/platform/crypto"
	"bookstore/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers map[string]user.User

func (s stubUsers) GetByID(_ context.Context, id string) (user.User, error) {
	if id == "broken" {
		return user.User{}, errors.New("db down")
	}
	u, ok := s[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	users := stubUsers{"user-1": {ID: "user-1", Username: "reader", IsStaff: true}}

	var caller *user.User
	handler := AuthMiddleware(secret, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = UserFrom(r)
		w.WriteHeader(http.StatusOK)
	}))

	token := func(sub string) string {
		tok, err := crypto.GenerateToken(secret, sub, time.Hour)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller bool
	}{
		{"anonymous", "", http.StatusOK, false},
		{"valid token", "Bearer " + token("user-1"), http.StatusOK, true},
		{"not bearer", "Basic abc", http.StatusUnauthorized, false},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, false},
		{"unknown user", "Bearer " + token("ghost"), http.StatusUnauthorized, false},
		{"lookup failure", "Bearer " + token("broken"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCaller {
				require.NotNil(t, caller)
				assert.Equal(t, "user-1", caller.ID)
				assert.True(t, caller.IsStaff)
			} else {
				assert.Nil(t, caller)
			}
		})
	}
}
