package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

type stubVerifier struct {
	tokens map[string]*domain.Identity
	err    error
}

func (s stubVerifier) Verify(_ context.Context, token string) (*domain.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	id, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	cp := *id
	return &cp, nil
}

type stubResolver struct{ err error }

func (s stubResolver) ResolveIdentity(_ context.Context, id *domain.Identity) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if id.UserID != "" {
		return id.UserID, nil
	}
	return "local-" + id.Subject, nil
}

func newAuthRouter(v auth.Verifier, r IdentityResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.GET("/me", RequireAuth(v, r, ""), func(c *gin.Context) {
		c.String(http.StatusOK, auth.UserID(c))
	})
	return e
}

func TestRequireAuth(t *testing.T) {
	verifier := stubVerifier{tokens: map[string]*domain.Identity{
		"good":     {Provider: domain.ProviderJWT, Subject: "u1", UserID: "u1"},
		"firebase": {Provider: domain.ProviderFirebase, Subject: "fb-9"},
	}}

	tests := []struct {
		name     string
		header   string
		cookie   string
		resolver stubResolver
		wantCode int
		wantBody string
	}{
		{"missing token", "", "", stubResolver{}, http.StatusUnauthorized, "missing authorization token"},
		{"bearer token", "Bearer good", "", stubResolver{}, http.StatusOK, "u1"},
		{"host cookie", "", "localhost:at=good", stubResolver{}, http.StatusOK, "u1"},
		{"legacy cookie", "", "access_token=good", stubResolver{}, http.StatusOK, "u1"},
		{"resolved firebase user", "Bearer firebase", "", stubResolver{}, http.StatusOK, "local-fb-9"},
		{"invalid token", "Bearer nope", "", stubResolver{}, http.StatusUnauthorized, "invalid token"},
		{"unresolvable user", "Bearer good", "", stubResolver{err: domain.ErrUserNotFound}, http.StatusUnauthorized, "user not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://localhost/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", tt.cookie)
			}
			w := httptest.NewRecorder()
			newAuthRouter(verifier, tt.resolver).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRequireAuth_VerifierFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://localhost/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()

	newAuthRouter(stubVerifier{err: errors.New("redis down")}, stubResolver{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
