package users

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"beastfood/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Profile returns nil when the user does not exist.
func (r *Repo) Profile(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.name, u.bio, u.avatar_url, u.role, u.created_at,
		       (SELECT COUNT(*) FROM follows WHERE following_id = u.id),
		       (SELECT COUNT(*) FROM follows WHERE follower_id = u.id),
		       (SELECT COUNT(*) FROM posts WHERE user_id = u.id)
		FROM users u
		WHERE u.id = $1
	`, id).Scan(&p.ID, &p.Username, &p.Name, &p.Bio, &p.AvatarURL, &p.Role, &p.CreatedAt,
		&p.FollowerCount, &p.FollowingCount, &p.PostCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

type ProfileUpdate struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

func (r *Repo) Update(ctx context.Context, id string, u ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v string) {
		args = append(args, strings.TrimSpace(v))
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Bio != nil {
		set("bio", *u.Bio)
	}
	if u.AvatarURL != nil {
		set("avatar_url", *u.AvatarURL)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
