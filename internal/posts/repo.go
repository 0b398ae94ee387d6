package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"beastfood/internal/pending"
	"beastfood/internal/restaurants"
	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

var ErrRestaurantNotFound = errors.New("restaurant not found")

type Repo struct {
	DB      *sql.DB
	Pending *pending.Repo
}

func NewRepo(db *sql.DB, pend *pending.Repo) *Repo {
	return &Repo{DB: db, Pending: pend}
}

const selectPost = `
	SELECT p.id, p.user_id, p.restaurant_id, COALESCE(r.name, ''), p.content, p.rating, p.image_url, p.created_at,
	       u.username, u.name, u.avatar_url,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id),
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
	FROM posts p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN restaurants r ON r.id = p.restaurant_id`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		p      models.Post
		restID sql.NullInt64
		rating sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.UserID, &restID, &p.RestaurantName, &p.Content, &rating, &p.ImageURL, &p.CreatedAt,
		&p.Author.Username, &p.Author.Name, &p.Author.AvatarURL, &p.LikeCount, &p.CommentCount); err != nil {
		return nil, err
	}
	p.Author.ID = p.UserID
	if restID.Valid {
		p.RestaurantID = &restID.Int64
	}
	if rating.Valid {
		v := int(rating.Int64)
		p.Rating = &v
	}
	return &p, nil
}

// Create inserts the post and, when suggestion is set, a pending restaurant
// linked to it, in one transaction. A rated post refreshes the restaurant's
// rating aggregate.
func (r *Repo) Create(ctx context.Context, p *models.Post, suggestion *models.PendingRestaurant) (*models.Post, error) {
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var restID, rating sql.NullInt64
		if p.RestaurantID != nil {
			restID = sql.NullInt64{Int64: *p.RestaurantID, Valid: true}
		}
		if p.Rating != nil {
			rating = sql.NullInt64{Int64: int64(*p.Rating), Valid: true}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (user_id, restaurant_id, content, rating, image_url)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, p.UserID, restID, strings.TrimSpace(p.Content), rating, p.ImageURL).Scan(&p.ID)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrRestaurantNotFound
			}
			return fmt.Errorf("insert post: %w", err)
		}

		if p.RestaurantID != nil && p.Rating != nil {
			if err := refreshRating(ctx, tx, *p.RestaurantID); err != nil {
				return err
			}
		}

		if suggestion != nil {
			suggestion.PostID = &p.ID
			if err := r.Pending.Insert(ctx, tx, suggestion); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, p.ID)
}

func refreshRating(ctx context.Context, q restaurants.Querier, restaurantID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE restaurants SET
			rating = COALESCE((SELECT AVG(rating) FROM posts WHERE restaurant_id = $1 AND rating IS NOT NULL), 0),
			rating_count = (SELECT COUNT(*) FROM posts WHERE restaurant_id = $1 AND rating IS NOT NULL),
			updated_at = NOW()
		WHERE id = $1
	`, restaurantID)
	if err != nil {
		return fmt.Errorf("refresh restaurant rating: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(r.DB.QueryRowContext(ctx, selectPost+` WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

type ListQuery struct {
	RestaurantID int64
	UserID       string
	Limit        int
	Offset       int
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Post, error) {
	var (
		where []string
		args  []any
	)
	if q.RestaurantID > 0 {
		args = append(args, q.RestaurantID)
		where = append(where, "p.restaurant_id = $"+strconv.Itoa(len(args)))
	}
	if q.UserID != "" {
		args = append(args, q.UserID)
		where = append(where, "p.user_id = $"+strconv.Itoa(len(args)))
	}

	sqlStr := selectPost
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.Limit, q.Offset)
	sqlStr += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := make([]models.Post, 0, q.Limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Delete removes the post when userID wrote it and refreshes the rating of
// the restaurant it pointed at.
func (r *Repo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var restID sql.NullInt64
		err := tx.QueryRowContext(ctx, `
			DELETE FROM posts WHERE id = $1 AND user_id = $2 RETURNING restaurant_id
		`, id, userID).Scan(&restID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		deleted = true
		if restID.Valid {
			return refreshRating(ctx, tx, restID.Int64)
		}
		return nil
	})
	return deleted, err
}

// AuthorID returns "" when the post does not exist.
func (r *Repo) AuthorID(ctx context.Context, postID int64) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = $1`, postID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("post author: %w", err)
	}
	return id, nil
}
