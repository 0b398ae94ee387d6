package admin

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type Stats struct {
	Users               int `json:"users"`
	Restaurants         int `json:"restaurants"`
	Posts               int `json:"posts"`
	PendingSuggestions  int `json:"pending_suggestions"`
	UnreadNotifications int `json:"unread_notifications"`
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Stats runs the dashboard counters concurrently; the first failure cancels
// the rest.
func (r *Repo) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	counters := []struct {
		dst *int
		sql string
	}{
		{&st.Users, `SELECT COUNT(*) FROM users`},
		{&st.Restaurants, `SELECT COUNT(*) FROM restaurants WHERE status = 'active'`},
		{&st.Posts, `SELECT COUNT(*) FROM posts`},
		{&st.PendingSuggestions, `SELECT COUNT(*) FROM pending_restaurants WHERE status = 'pending'`},
		{&st.UnreadNotifications, `SELECT COUNT(*) FROM notifications WHERE is_read = FALSE`},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counters {
		c := c
		g.Go(func() error {
			if err := r.DB.QueryRowContext(gctx, c.sql).Scan(c.dst); err != nil {
				return fmt.Errorf("admin stats: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetRole also bumps the token version so tokens carrying the old role stop
// verifying.
func (r *Repo) SetRole(ctx context.Context, userID, role string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET role = $1, token_version = token_version + 1 WHERE id = $2
	`, role, userID)
	if err != nil {
		return false, fmt.Errorf("set role: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) UserExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return ok, nil
}
