package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/auth/repository"
	mailer "github.com/taskdeck/taskdeck-backend/internal/mail"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	hashes map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, hashes: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, user *domain.User, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	user.ID = uuid.NewString()
	cp := *user
	m.byID[user.ID] = &cp
	m.hashes[user.ID] = hash
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, _, err := m.GetCredentials(ctx, email)
	return u, err
}

func (m *memUsers) GetCredentials(_ context.Context, email string) (*domain.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for id, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, m.hashes[id], nil
		}
	}
	return nil, "", domain.ErrUserNotFound
}

func (m *memUsers) PasswordHash(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return "", domain.ErrUserNotFound
	}
	return m.hashes[id], nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[id] = hash
	return nil
}

func (m *memUsers) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (m *memUsers) GetByFirebaseUID(_ context.Context, uid string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) UpsertFirebase(_ context.Context, uid, email, name string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: uuid.NewString(), Email: email, DisplayName: name, FirebaseUID: &uid, Role: domain.RoleUser}
	m.byID[u.ID] = u
	return u, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (r *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

type fixture struct {
	svc    *AuthService
	users  *memUsers
	mail   *recordingMailer
	tokens *auth.TokenManager
	store  *repository.SessionStore
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "taskdeck",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   time.Hour,
		FrontendURL:     "https://app.example",
	}
	f := &fixture{
		users:  newMemUsers(),
		mail:   &recordingMailer{},
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL),
		store:  repository.NewSessionStore(client),
	}
	f.svc = NewAuthService(f.users, f.store, f.tokens, f.mail, cfg)
	return f
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, pair, err := f.svc.Register(ctx, domain.RegisterRequest{Email: " Ann@Example.com ", Password: "passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "ann", user.DisplayName)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := f.tokens.Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	_, _, err = f.svc.Register(ctx, domain.RegisterRequest{Email: "ann@example.com", Password: "passw0rd!"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, _, err = f.svc.Login(ctx, "ann@example.com", "wrong-pass1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "passw0rd!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	logged, _, err := f.svc.Login(ctx, "ANN@example.com", "passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotNil(t, logged.LastLoginAt)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, domain.RegisterRequest{Email: "not-an-email", Password: "passw0rd!"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, _, err = f.svc.Register(ctx, domain.RegisterRequest{Email: "a@b.co", Password: "short1"})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	_, _, err = f.svc.Register(ctx, domain.RegisterRequest{Email: "a@b.co", Password: "onlyletters"})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, domain.RegisterRequest{Email: "bo@example.com", Password: "passw0rd!"})
	require.NoError(t, err)

	_, next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "refresh tokens are single use")

	_, _, err = f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_LogoutRevokesAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Register(ctx, domain.RegisterRequest{Email: "cy@example.com", Password: "passw0rd!"})
	require.NoError(t, err)

	verifier := auth.NewJWTVerifier(f.tokens, f.store)
	identity, err := verifier.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, identity, pair.RefreshToken))

	_, err = verifier.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, domain.RegisterRequest{Email: "di@example.com", Password: "passw0rd!"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "unknown@example.com"))
	assert.Empty(t, f.mail.sent, "unknown emails are silently ignored")

	require.NoError(t, f.svc.ForgotPassword(ctx, "di@example.com"))
	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "di@example.com", msg.To)

	const marker = "reset-password?token="
	i := strings.Index(msg.HTML, marker)
	require.GreaterOrEqual(t, i, 0)
	token := msg.HTML[i+len(marker):]
	token = token[:strings.IndexByte(token, '"')]

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "weak"), domain.ErrWeakPassword)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "n3wpassword"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "n3wpassword"), domain.ErrInvalidToken)

	_, _, err = f.svc.Login(ctx, "di@example.com", "n3wpassword")
	require.NoError(t, err)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.Register(ctx, domain.RegisterRequest{Email: "ed@example.com", Password: "passw0rd!"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, user.ID, "wrong", "n3wpassword"), domain.ErrInvalidCredentials)
	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "passw0rd!", "n3wpassword"))

	_, _, err = f.svc.Login(ctx, "ed@example.com", "n3wpassword")
	require.NoError(t, err)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.Register(ctx, domain.RegisterRequest{Email: "fi@example.com", Password: "passw0rd!"})
	require.NoError(t, err)

	name, avatar := "  Fi  ", "https://cdn.example/fi.png"
	updated, err := f.svc.UpdateProfile(ctx, user.ID, &domain.UpdateUserRequest{DisplayName: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Fi", updated.DisplayName)
	require.NotNil(t, updated.AvatarURL)

	empty := ""
	updated, err = f.svc.UpdateProfile(ctx, user.ID, &domain.UpdateUserRequest{AvatarURL: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.AvatarURL)
	assert.Equal(t, "Fi", updated.DisplayName)
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := &domain.Identity{Provider: domain.ProviderFirebase, Subject: "fb-1", Email: "gu@example.com"}
	first, err := f.svc.ResolveIdentity(ctx, id)
	require.NoError(t, err)
	second, err := f.svc.ResolveIdentity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, second, "firebase users are created once")

	got, err := f.svc.ResolveIdentity(ctx, &domain.Identity{Provider: domain.ProviderJWT, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	_, err = f.svc.ResolveIdentity(ctx, &domain.Identity{Provider: domain.ProviderJWT})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
