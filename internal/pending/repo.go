package pending

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"beastfood/internal/apierr"
	"beastfood/internal/restaurants"
	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

var (
	ErrNotFound   = apierr.NotFound("restaurant suggestion not found")
	ErrNotPending = apierr.Conflict("restaurant suggestion is not pending")
	// ErrPostNotLinked means the originating post vanished between submission
	// and approval.
	ErrPostNotLinked = apierr.Conflict("originating post could not be linked")
)

type Repo struct {
	DB          *sql.DB
	Restaurants *restaurants.Repo
}

func NewRepo(db *sql.DB, rest *restaurants.Repo) *Repo {
	return &Repo{DB: db, Restaurants: rest}
}

const columns = `id, name, address, city, state, category, description, price_level, latitude, longitude,
	submitted_by, post_id, status, restaurant_id, reviewed_by, reviewed_at, rejection_reason, created_at`

func scanPending(row interface{ Scan(...any) error }) (*models.PendingRestaurant, error) {
	var (
		p              models.PendingRestaurant
		lat, lng       sql.NullFloat64
		postID, restID sql.NullInt64
		reviewedBy     sql.NullString
		reviewedAt     sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.State, &p.Category, &p.Description, &p.PriceLevel,
		&lat, &lng, &p.SubmittedBy, &postID, &p.Status, &restID, &reviewedBy, &reviewedAt, &p.RejectionReason,
		&p.CreatedAt); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		p.Latitude, p.Longitude = &lat.Float64, &lng.Float64
	}
	if postID.Valid {
		p.PostID = &postID.Int64
	}
	if restID.Valid {
		p.RestaurantID = &restID.Int64
	}
	p.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	return &p, nil
}

// Insert stores p with status pending; q may be a transaction.
func (r *Repo) Insert(ctx context.Context, q restaurants.Querier, p *models.PendingRestaurant) error {
	p.Status = models.PendingStatusPending
	if p.Category == "" {
		p.Category = "restaurant"
	}
	if p.PriceLevel == 0 {
		p.PriceLevel = 3
	}

	var lat, lng sql.NullFloat64
	if p.Latitude != nil && p.Longitude != nil {
		lat = sql.NullFloat64{Float64: *p.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: *p.Longitude, Valid: true}
	}
	var postID sql.NullInt64
	if p.PostID != nil {
		postID = sql.NullInt64{Int64: *p.PostID, Valid: true}
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO pending_restaurants (name, address, city, state, category, description, price_level,
			latitude, longitude, submitted_by, post_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, strings.TrimSpace(p.Name), strings.TrimSpace(p.Address), p.City, p.State, p.Category, p.Description,
		p.PriceLevel, lat, lng, p.SubmittedBy, postID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending restaurant: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.PendingRestaurant, error) {
	p, err := scanPending(r.DB.QueryRowContext(ctx, `SELECT `+columns+` FROM pending_restaurants WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending restaurant: %w", err)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context, status string, limit, offset int) ([]models.PendingRestaurant, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+columns+`
		FROM pending_restaurants
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pending restaurants: %w", err)
	}
	defer rows.Close()

	out := []models.PendingRestaurant{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending restaurant: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending restaurants rows: %w", err)
	}
	return out, nil
}

// Approve materializes the suggestion as an active restaurant. Everything
// runs in one transaction: a failure at any step leaves the suggestion
// pending and the originating post untouched.
func (r *Repo) Approve(ctx context.Context, id int64, adminID string) (*models.PendingRestaurant, *models.Restaurant, error) {
	var (
		p    *models.PendingRestaurant
		rest *models.Restaurant
	)
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var err error
		p, err = scanPending(tx.QueryRowContext(ctx, `SELECT `+columns+` FROM pending_restaurants WHERE id = $1 FOR UPDATE`, id))
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock pending restaurant: %w", err)
		}
		if p.Status != models.PendingStatusPending {
			return ErrNotPending
		}

		rest = &models.Restaurant{
			Name:        p.Name,
			Address:     p.Address,
			City:        p.City,
			State:       p.State,
			Category:    p.Category,
			Description: p.Description,
			PriceLevel:  p.PriceLevel,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Source:      "community",
			Status:      models.RestaurantActive,
			CreatedBy:   p.SubmittedBy,
		}
		if err := r.Restaurants.InsertUnique(ctx, tx, rest); err != nil {
			return err
		}

		if p.PostID != nil {
			res, err := tx.ExecContext(ctx, `UPDATE posts SET restaurant_id = $1 WHERE id = $2`, rest.ID, *p.PostID)
			if err != nil {
				return fmt.Errorf("link post: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				return ErrPostNotLinked
			}
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE pending_restaurants
			SET status = $1, restaurant_id = $2, reviewed_by = $3, reviewed_at = NOW()
			WHERE id = $4
			RETURNING reviewed_at
		`, models.PendingStatusApproved, rest.ID, adminID, id).Scan(&p.ReviewedAt)
		if err != nil {
			return fmt.Errorf("mark approved: %w", err)
		}
		p.Status = models.PendingStatusApproved
		p.RestaurantID = &rest.ID
		p.ReviewedBy = adminID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return p, rest, nil
}

// Reject moves a pending suggestion to the terminal rejected state.
func (r *Repo) Reject(ctx context.Context, id int64, adminID, reason string) (*models.PendingRestaurant, error) {
	p, err := scanPending(r.DB.QueryRowContext(ctx, `
		UPDATE pending_restaurants
		SET status = $1, reviewed_by = $2, reviewed_at = NOW(), rejection_reason = $3
		WHERE id = $4 AND status = $5
		RETURNING `+columns, models.PendingStatusRejected, adminID, strings.TrimSpace(reason), id, models.PendingStatusPending))
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("reject pending restaurant: %w", err)
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	return nil, ErrNotPending
}
