package models

import "time"

// Notification kinds.
const (
	NotifyFollow             = "follow"
	NotifyLike               = "like"
	NotifyComment            = "comment"
	NotifyRestaurantApproved = "restaurant_approved"
	NotifyRestaurantRejected = "restaurant_rejected"
	NotifyNewSuggestion      = "new_suggestion"
)

type Notification struct {
	ID         int64        `json:"id"`
	UserID     string       `json:"user_id"`
	ActorID    string       `json:"actor_id,omitempty"`
	Type       string       `json:"type"`
	Message    string       `json:"message"`
	EntityType string       `json:"entity_type,omitempty"`
	EntityID   *int64       `json:"entity_id,omitempty"`
	IsRead     bool         `json:"is_read"`
	Actor      *UserSummary `json:"actor,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
