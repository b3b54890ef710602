package auth

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

// InitializeFirebase initializes the Firebase Admin SDK and returns an Auth client
func InitializeFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*fbauth.Client, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return authClient, nil
}

// IDTokenVerifier is the part of the Firebase auth client we use.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens. The returned identity has no
// local UserID yet; the auth service maps the Firebase uid to a user row.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	id := &domain.Identity{
		Provider: domain.ProviderFirebase,
		Subject:  decoded.UID,
	}
	if email, ok := decoded.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		id.Name = name
	}
	if decoded.Expires > 0 {
		id.ExpiresAt = time.Unix(decoded.Expires, 0).UTC()
	}
	return id, nil
}
