package follows

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrUserNotFound     = errors.New("user not found")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Follow(ctx context.Context, followerID, followingID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO follows (follower_id, following_id) VALUES ($1, $2)
	`, followerID, followingID)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrAlreadyFollowing
	case database.IsForeignKeyViolation(err):
		return ErrUserNotFound
	default:
		return fmt.Errorf("insert follow: %w", err)
	}
}

func (r *Repo) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM follows WHERE follower_id = $1 AND following_id = $2
	`, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Followers lists who follows userID.
func (r *Repo) Followers(ctx context.Context, userID string, limit, offset int) ([]models.UserSummary, error) {
	return r.list(ctx, `
		SELECT u.id, u.username, u.name, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
}

// Following lists who userID follows.
func (r *Repo) Following(ctx context.Context, userID string, limit, offset int) ([]models.UserSummary, error) {
	return r.list(ctx, `
		SELECT u.id, u.username, u.name, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
}

func (r *Repo) list(ctx context.Context, q, userID string, limit, offset int) ([]models.UserSummary, error) {
	rows, err := r.DB.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	out := make([]models.UserSummary, 0)
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan follow row: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
