package search

import (
	"context"
	"strings"

	"beastfood/internal/apierr"
	"beastfood/internal/restaurants"
	"beastfood/pkg/models"
)

// IngestRequest is a candidate the caller chose to promote to a restaurant.
type IngestRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	PriceLevel  int      `json:"price_level"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"rating_count"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       string   `json:"phone"`
	Website     string   `json:"website"`
	Source      string   `json:"source"`
	ExternalID  string   `json:"external_id"`
}

type Ingestor struct {
	Restaurants *restaurants.Repo
}

// Ingest validates and inserts req. Duplicates surface as
// *restaurants.DuplicateError; validation failures as a 400 *apierr.Error.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest, userID string) (*models.Restaurant, error) {
	if err := restaurants.Validate(req.Name, req.Address, req.PriceLevel, req.Latitude, req.Longitude); err != nil {
		return nil, apierr.BadRequest(err.Error())
	}
	if req.Rating < 0 || req.Rating > 5 {
		return nil, apierr.BadRequest("rating must be between 0 and 5")
	}

	price := req.PriceLevel
	if price == 0 {
		price = 3
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = models.SourceAISearch
	}

	rest := &models.Restaurant{
		Name:        strings.TrimSpace(req.Name),
		Address:     strings.TrimSpace(req.Address),
		City:        req.City,
		State:       req.State,
		Category:    normalizeCategory(req.Category),
		Description: req.Description,
		PriceLevel:  price,
		Rating:      req.Rating,
		RatingCount: req.RatingCount,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Phone:       req.Phone,
		Website:     req.Website,
		Source:      source,
		ExternalID:  req.ExternalID,
		Status:      models.RestaurantActive,
		CreatedBy:   userID,
	}
	if err := i.Restaurants.CreateUnique(ctx, rest); err != nil {
		return nil, err
	}
	return rest, nil
}
