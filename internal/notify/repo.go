package notify

import (
	"context"
	"database/sql"
	"fmt"

	"beastfood/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Create(ctx context.Context, n *models.Notification) error {
	var actor sql.NullString
	if n.ActorID != "" {
		actor = sql.NullString{String: n.ActorID, Valid: true}
	}
	var entity sql.NullInt64
	if n.EntityID != nil {
		entity = sql.NullInt64{Int64: *n.EntityID, Valid: true}
	}

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, actor_id, type, message, entity_type, entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, n.UserID, actor, n.Type, n.Message, n.EntityType, entity).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Actor returns the summary block for userID, or nil when the user is gone.
func (r *Repo) Actor(ctx context.Context, userID string) (*models.UserSummary, error) {
	var u models.UserSummary
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, username, name, avatar_url FROM users WHERE id = $1
	`, userID).Scan(&u.ID, &u.Username, &u.Name, &u.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	return &u, nil
}

func (r *Repo) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	q := `
		SELECT n.id, n.user_id, n.actor_id, n.type, n.message, n.entity_type, n.entity_id, n.is_read, n.created_at,
		       u.username, u.name, u.avatar_url
		FROM notifications n
		LEFT JOIN users u ON u.id = n.actor_id
		WHERE n.user_id = $1`
	if unreadOnly {
		q += ` AND n.is_read = FALSE`
	}
	q += ` ORDER BY n.created_at DESC, n.id DESC LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var (
			n                      models.Notification
			actorID                sql.NullString
			entityID               sql.NullInt64
			username, name, avatar sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &actorID, &n.Type, &n.Message, &n.EntityType, &entityID, &n.IsRead, &n.CreatedAt,
			&username, &name, &avatar); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if entityID.Valid {
			id := entityID.Int64
			n.EntityID = &id
		}
		if actorID.Valid {
			n.ActorID = actorID.String
			if username.Valid {
				n.Actor = &models.UserSummary{ID: actorID.String, Username: username.String, Name: name.String, AvatarURL: avatar.String}
			}
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications rows: %w", err)
	}
	return out, nil
}

func (r *Repo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// MarkRead returns false when the notification does not belong to userID.
func (r *Repo) MarkRead(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repo) AdminIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM users WHERE role = 'admin' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
