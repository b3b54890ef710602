package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	mailer "github.com/taskdeck/taskdeck-backend/internal/mail"
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	Create(ctx context.Context, user *domain.User, passwordHash string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetCredentials(ctx context.Context, email string) (*domain.User, string, error)
	PasswordHash(ctx context.Context, id string) (string, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error)
	UpsertFirebase(ctx context.Context, uid, email, displayName string) (*domain.User, error)
}

// SessionStore keeps refresh/reset tokens and revoked access tokens.
type SessionStore interface {
	SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeRefreshToken(ctx context.Context, token string) (string, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	SaveResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	tokens   *auth.TokenManager
	mailer   mailer.Mailer
	cfg      config.AuthConfig
	now      func() time.Time
}

func NewAuthService(users UserStore, sessions SessionStore, tokens *auth.TokenManager, m mailer.Mailer, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   m,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Register creates a local account and signs the user in.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, *domain.TokenPair, error) {
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// CreateUser creates a local account without signing in (used by the admin CLI).
func (s *AuthService) CreateUser(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}

	user := &domain.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        role,
	}
	if user.DisplayName == "" {
		user.DisplayName = strings.SplitN(email, "@", 2)[0]
	}

	if err := s.users.Create(ctx, user, string(hash)); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, hash, err := s.users.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if hash == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("record last login")
	} else {
		user.LastLoginAt = &now
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes the current access token and drops the refresh token.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity, refreshToken string) error {
	if identity != nil && identity.TokenID != "" {
		if err := s.sessions.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.DeleteRefreshToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}
	return nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, nil, domain.ErrInvalidToken
	}
	userID, err := s.sessions.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidToken
		}
		return nil, nil, err
	}
	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// ForgotPassword emails a reset link when the account exists. It reports success
// either way so callers cannot discover which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := randomToken()
	if err != nil {
		return err
	}
	if err := s.sessions.SaveResetToken(ctx, token, user.ID, s.cfg.ResetTokenTTL); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/reset-password?token=%s", s.cfg.FrontendURL, token)
	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Use the link below to choose a new password. It expires in %s.</p><p><a href="%s">Reset password</a></p>`,
			html.EscapeString(user.DisplayName), s.cfg.ResetTokenTTL, html.EscapeString(link),
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logging.FromContext(ctx).WithError(err).Error("send password reset mail")
	}
	return nil
}

// ResetPassword sets a new password using a single-use reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	userID, err := s.sessions.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	hash, err := s.users.PasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	if hash == "" {
		return domain.ErrPasswordLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile updates the provided profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.AvatarURL != nil {
		v := strings.TrimSpace(*req.AvatarURL)
		if v == "" {
			user.AvatarURL = nil
		} else {
			user.AvatarURL = &v
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResolveIdentity returns the local user id for a verified identity. Firebase
// identities are synced into the users table on first sight.
func (s *AuthService) ResolveIdentity(ctx context.Context, id *domain.Identity) (string, error) {
	switch id.Provider {
	case domain.ProviderFirebase:
		user, err := s.users.GetByFirebaseUID(ctx, id.Subject)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return "", err
		}
		user, err = s.users.UpsertFirebase(ctx, id.Subject, id.Email, id.Name)
		if err != nil {
			return "", fmt.Errorf("sync firebase user: %w", err)
		}
		return user.ID, nil
	default:
		if id.UserID == "" {
			return "", domain.ErrUserNotFound
		}
		return id.UserID, nil
	}
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, _, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	refresh, err := randomToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveRefreshToken(ctx, refresh, user.ID, s.cfg.RefreshTokenTTL); err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return domain.ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return domain.ErrWeakPassword
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
