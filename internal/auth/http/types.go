package http

import (
	"context"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

// Service is the auth behaviour the handlers need.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error)
	Logout(ctx context.Context, identity *domain.Identity, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.TokenPair, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error)
}

type CookieSettings struct {
	Host       string
	Secure     bool
	AccessTTL  int // seconds
	RefreshTTL int // seconds
}

type Handler struct {
	authService Service
	verifier    auth.Verifier
	cookies     CookieSettings
}

func New(authService Service, verifier auth.Verifier, cookies CookieSettings) *Handler {
	return &Handler{
		authService: authService,
		verifier:    verifier,
		cookies:     cookies,
	}
}
