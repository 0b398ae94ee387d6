package likes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beastfood/pkg/database"
)

var (
	ErrAlreadyLiked = errors.New("post already liked")
	ErrPostNotFound = errors.New("post not found")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Like(ctx context.Context, postID int64, userID string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO likes (post_id, user_id) VALUES ($1, $2)`, postID, userID)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrAlreadyLiked
	case database.IsForeignKeyViolation(err):
		return ErrPostNotFound
	default:
		return fmt.Errorf("insert like: %w", err)
	}
}

func (r *Repo) Unlike(ctx context.Context, postID int64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Count(ctx context.Context, postID int64) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}
