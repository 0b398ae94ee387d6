package models

import "time"

const (
	PendingStatusPending  = "pending"
	PendingStatusApproved = "approved"
	PendingStatusRejected = "rejected"
)

// PendingRestaurant is a community suggestion awaiting admin review.
// pending -> approved materializes a Restaurant; pending -> rejected is terminal.
type PendingRestaurant struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	Category        string     `json:"category"`
	Description     string     `json:"description,omitempty"`
	PriceLevel      int        `json:"price_level"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	SubmittedBy     string     `json:"submitted_by"`
	PostID          *int64     `json:"post_id,omitempty"`
	Status          string     `json:"status"`
	RestaurantID    *int64     `json:"restaurant_id,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
