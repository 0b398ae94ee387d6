package models

import "time"

// OSMPlace is a row of the estabelecimentos mirror.
type OSMPlace struct {
	ID           int64     `json:"id"`
	OSMID        int64     `json:"osm_id"`
	OSMType      string    `json:"osm_type"`
	Name         string    `json:"name"`
	Amenity      string    `json:"amenity"`
	Cuisine      string    `json:"cuisine,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Website      string    `json:"website,omitempty"`
	OpeningHours string    `json:"opening_hours,omitempty"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GooglePlace is a row of the estabelecimentos_google mirror.
type GooglePlace struct {
	ID               int64     `json:"id"`
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	Rating           float64   `json:"rating"`
	UserRatingsTotal int       `json:"user_ratings_total"`
	PriceLevel       int       `json:"price_level"`
	Types            []string  `json:"types"`
	BusinessStatus   string    `json:"business_status,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}
