package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Name         string
	AvatarURL    string
	GoogleID     string
	Role         string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, email, password_hash, name, avatar_url, google_id, role, token_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u        User
		hash     sql.NullString
		googleID sql.NullString
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &hash, &u.Name, &u.AvatarURL, &googleID, &u.Role, &u.TokenVersion, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	u.GoogleID = googleID.String
	return &u, nil
}

func (r *Repo) getOne(ctx context.Context, what, where string, arg any) (*User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get by %s: %w", what, err)
	}
	return u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, name, avatar_url, google_id, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Username, u.Email, nullString(u.PasswordHash), u.Name, u.AvatarURL, nullString(u.GoogleID), u.Role)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email", `LOWER(email) = $1`, strings.TrimSpace(strings.ToLower(email)))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username", `username = $1`, strings.TrimSpace(username))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "id", `id = $1`, id)
}

func (r *Repo) GetByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return r.getOne(ctx, "google id", `google_id = $1`, googleID)
}

// LinkGoogle attaches a Google account to an existing local user.
func (r *Repo) LinkGoogle(ctx context.Context, id, googleID, avatarURL string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET google_id = $1,
		    avatar_url = CASE WHEN avatar_url = '' THEN $2 ELSE avatar_url END
		WHERE id = $3
	`, googleID, avatarURL, id)
	if err != nil {
		return fmt.Errorf("link google: %w", err)
	}
	return nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM users
		WHERE id = $1
	`, id)

	var version int
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, token_version = token_version + 1
		WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: user not found")
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: user not found")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
