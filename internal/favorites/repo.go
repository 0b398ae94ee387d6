package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"beastfood/internal/restaurants"
	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

var (
	ErrAlreadyFavorited   = errors.New("restaurant already in favorites")
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Add(ctx context.Context, userID string, restaurantID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO favorites (user_id, restaurant_id)
		VALUES ($1, $2)
	`, userID, restaurantID)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrAlreadyFavorited
	case database.IsForeignKeyViolation(err):
		return ErrRestaurantNotFound
	default:
		return fmt.Errorf("add favorite: %w", err)
	}
}

func (r *Repo) Remove(ctx context.Context, userID string, restaurantID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE user_id = $1 AND restaurant_id = $2
	`, userID, restaurantID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns the user's favorites, newest first, with the total count.
func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.Favorite, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM favorites WHERE user_id = $1
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count favorites: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+restaurants.QualifiedColumns("r")+`, f.created_at
		FROM favorites f
		JOIN restaurants r ON r.id = f.restaurant_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]models.Favorite, 0, limit)
	for rows.Next() {
		var added time.Time
		rest, err := restaurants.Scan(rows, &added)
		if err != nil {
			return nil, 0, fmt.Errorf("scan favorite row: %w", err)
		}
		out = append(out, models.Favorite{UserID: userID, Restaurant: *rest, CreatedAt: added})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

func (r *Repo) Exists(ctx context.Context, userID string, restaurantID int64) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND restaurant_id = $2)
	`, userID, restaurantID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("favorite exists: %w", err)
	}
	return ok, nil
}
