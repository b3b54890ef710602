package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ProviderJWT      = "jwt"
	ProviderFirebase = "firebase"
)

// User represents a user in the application.
// The password hash is kept out of this struct and never serialised.
type User struct {
	ID          string     `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	DisplayName string     `json:"display_name" db:"display_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Role        string     `json:"role" db:"role"`
	FirebaseUID *string    `json:"-" db:"firebase_uid"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Identity is the verified content of a request token.
// UserID is empty until the identity has been resolved to a local user.
type Identity struct {
	Provider  string
	Subject   string
	UserID    string
	Email     string
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

// TokenPair is what a successful login, registration or refresh hands out.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RegisterRequest represents data needed to create a new local account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// UpdateUserRequest represents data for updating a user
type UpdateUserRequest struct {
	DisplayName *string
	AvatarURL   *string
}
