package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and parses HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs an access token for the user. It returns the token, its id and expiry.
func (m *TokenManager) Issue(user *domain.User) (string, string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, exp, nil
}

// Parse validates signature, issuer and expiry and returns the claims.
func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// Verifier turns a raw request token into an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// RevocationChecker reports whether an access token id has been revoked (logout).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTVerifier verifies locally issued access tokens.
type JWTVerifier struct {
	tokens  *TokenManager
	revoked RevocationChecker
}

func NewJWTVerifier(tokens *TokenManager, revoked RevocationChecker) *JWTVerifier {
	return &JWTVerifier{tokens: tokens, revoked: revoked}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := v.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if v.revoked != nil && claims.ID != "" {
		revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, domain.ErrTokenRevoked
		}
	}

	id := &domain.Identity{
		Provider: domain.ProviderJWT,
		Subject:  claims.Subject,
		UserID:   claims.Subject,
		Email:    claims.Email,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// IsTokenError reports whether err means the client presented a bad token
// (as opposed to an infrastructure failure).
func IsTokenError(err error) bool {
	return errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrTokenRevoked)
}
