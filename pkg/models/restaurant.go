package models

import "time"

const (
	RestaurantActive   = "active"
	RestaurantInactive = "inactive"
)

type Restaurant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Category    string    `json:"category"`
	PriceLevel  int       `json:"price_level"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Source      string    `json:"source"`
	ExternalID  string    `json:"external_id,omitempty"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Only set by the nearby query.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// RestaurantDetail is a restaurant with its owner-managed extras.
type RestaurantDetail struct {
	Restaurant
	Photos     []Photo         `json:"photos"`
	Services   []string        `json:"services"`
	Highlights []string        `json:"highlights"`
	Hours      []OperatingHour `json:"operating_hours"`
}

type Photo struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OperatingHour uses 0 = Sunday.
type OperatingHour struct {
	DayOfWeek int    `json:"day_of_week"`
	OpenTime  string `json:"open_time,omitempty"`
	CloseTime string `json:"close_time,omitempty"`
	Closed    bool   `json:"closed"`
}
