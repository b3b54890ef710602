package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

const userColumns = `id, email, display_name, avatar_url, role, firebase_uid, created_at, updated_at, last_login_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner, extra ...interface{}) (*domain.User, error) {
	var user domain.User
	var avatarURL, firebaseUID sql.NullString
	var lastLoginAt sql.NullTime

	dest := []interface{}{
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&avatarURL,
		&user.Role,
		&firebaseUID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	// Handle nullable fields
	if avatarURL.Valid {
		user.AvatarURL = &avatarURL.String
	}
	if firebaseUID.Valid {
		user.FirebaseUID = &firebaseUID.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	return &user, nil
}

// Create inserts a local account. user.ID is generated when empty.
func (r *UserRepository) Create(ctx context.Context, user *domain.User, passwordHash string) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	const q = `
INSERT INTO users (id, email, password_hash, display_name, avatar_url, role)
VALUES ($1, $2, nullif($3, ''), $4, $5, $6)
RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, q,
		user.ID, user.Email, passwordHash, user.DisplayName, user.AvatarURL, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

// GetByEmail retrieves a user by (case-insensitive) email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

// GetCredentials returns the user together with the stored password hash ("" when none).
func (r *UserRepository) GetCredentials(ctx context.Context, email string) (*domain.User, string, error) {
	q := `SELECT ` + userColumns + `, coalesce(password_hash, '') FROM users WHERE email = $1`
	var hash string
	user, err := scanUser(r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))), &hash)
	if err != nil {
		return nil, "", err
	}
	return user, hash, nil
}

// PasswordHash returns the stored password hash for a user id.
func (r *UserRepository) PasswordHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT coalesce(password_hash, '') FROM users WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrUserNotFound
	}
	return hash, err
}

// Update updates profile fields
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	const q = `
UPDATE users
SET display_name = $2, avatar_url = $3, updated_at = now()
WHERE id = $1
RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, q, user.ID, user.DisplayName, user.AvatarURL).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

// UpdateLastLogin updates the last login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
}

// UpsertFirebase creates or refreshes the user row linked to a Firebase uid.
// A pre-existing local account with the same email is linked instead of duplicated.
func (r *UserRepository) UpsertFirebase(ctx context.Context, uid, email, displayName string) (*domain.User, error) {
	if uid == "" {
		return nil, fmt.Errorf("firebase uid required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = uid + "@firebase.local"
	}

	q := `
INSERT INTO users (id, email, display_name, role, firebase_uid)
VALUES ($1, $2, $3, 'user', $4)
ON CONFLICT (email) DO UPDATE
SET firebase_uid = EXCLUDED.firebase_uid,
    display_name = CASE WHEN users.display_name = '' THEN EXCLUDED.display_name ELSE users.display_name END,
    updated_at = now()
RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, q, uuid.NewString(), email, displayName, uid))
}

// GetByFirebaseUID retrieves a user by their Firebase UID
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE firebase_uid = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, uid))
}

func (r *UserRepository) execOne(ctx context.Context, q string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
