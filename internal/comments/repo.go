package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

var ErrPostNotFound = errors.New("post not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const selectComment = `
	SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.username, u.name, u.avatar_url
	FROM comments c
	JOIN users u ON u.id = c.user_id`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt,
		&c.Author.Username, &c.Author.Name, &c.Author.AvatarURL); err != nil {
		return nil, err
	}
	c.Author.ID = c.UserID
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, postID int64, userID, content string) (*models.Comment, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, postID, userID, content).Scan(&id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(r.DB.QueryRowContext(ctx, selectComment+` WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// ListByPost returns comments oldest first.
func (r *Repo) ListByPost(ctx context.Context, postID int64, limit, offset int) ([]models.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, selectComment+`
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT $2 OFFSET $3
	`, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Delete removes the comment only when userID wrote it.
func (r *Repo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
