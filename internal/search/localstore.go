package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"beastfood/pkg/models"
)

// LocalStore reads restaurants and the imported place mirrors.
type LocalStore struct {
	DB         *sql.DB
	TargetCity string
	CenterLat  float64
	CenterLng  float64
	RadiusKm   float64
}

func NewLocalStore(db *sql.DB, city string, lat, lng, radiusKm float64) *LocalStore {
	return &LocalStore{DB: db, TargetCity: city, CenterLat: lat, CenterLng: lng, RadiusKm: radiusKm}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

// SearchRestaurants matches active restaurants by name, description or category.
func (s *LocalStore) SearchRestaurants(ctx context.Context, term string, f models.SearchFilters, limit int) ([]models.Candidate, error) {
	where := []string{`status = 'active'`, `(name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1)`}
	args := []any{likePattern(term)}

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add(`LOWER(category) = LOWER($%d)`, f.Type)
	}
	if f.MinPrice > 0 {
		add(`price_level >= $%d`, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add(`price_level <= $%d`, f.MaxPrice)
	}
	if f.MinRating > 0 {
		add(`rating >= $%d`, f.MinRating)
	}
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)

	q := `
		SELECT id, name, address, city, state, latitude, longitude, category, description,
		       price_level, rating, rating_count, phone, website
		FROM restaurants
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY rating DESC, rating_count DESC, name ASC
		LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var (
			id       int64
			c        models.Candidate
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&id, &c.Name, &c.Address, &c.City, &c.State, &lat, &lng, &c.Category, &c.Description,
			&c.PriceLevel, &c.Rating, &c.RatingCount, &c.Phone, &c.Website); err != nil {
			return nil, fmt.Errorf("search restaurants scan: %w", err)
		}
		if lat.Valid && lng.Valid {
			c.Latitude, c.Longitude = floatPtr(lat.Float64), floatPtr(lng.Float64)
		}
		c.Source = models.SourceLocalDatabase
		c.ExternalID = strconv.FormatInt(id, 10)
		c.IsTargetCity = sameCity(c.City, s.TargetCity)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search restaurants rows: %w", err)
	}
	return out, nil
}

// Nearby searches both place mirrors within RadiusKm of the city center.
func (s *LocalStore) Nearby(ctx context.Context, term string, limit int) ([]models.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	google, err := s.nearbyGoogle(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	osm, err := s.nearbyOSM(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	return append(google, osm...), nil
}

const distanceExpr = `earth_distance(ll_to_earth($2, $3), ll_to_earth(latitude, longitude))`

func (s *LocalStore) nearbyGoogle(ctx context.Context, term string, limit int) ([]models.Candidate, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT place_id, name, address, latitude, longitude, rating, user_ratings_total, price_level, types
		FROM estabelecimentos_google
		WHERE name ILIKE $1
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND `+distanceExpr+` <= $4
		ORDER BY `+distanceExpr+` ASC
		LIMIT $5
	`, likePattern(term), s.CenterLat, s.CenterLng, s.RadiusKm*1000, limit)
	if err != nil {
		return nil, fmt.Errorf("nearby google mirror: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var (
			c        models.Candidate
			lat, lng float64
			types    string
		)
		if err := rows.Scan(&c.ExternalID, &c.Name, &c.Address, &lat, &lng, &c.Rating, &c.RatingCount, &c.PriceLevel, &types); err != nil {
			return nil, fmt.Errorf("nearby google mirror scan: %w", err)
		}
		c.Latitude, c.Longitude = floatPtr(lat), floatPtr(lng)
		c.Category = categoryFromGoogleTypes(strings.Split(types, ","))
		s.tagProximity(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *LocalStore) nearbyOSM(ctx context.Context, term string, limit int) ([]models.Candidate, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT osm_type, osm_id, name, amenity, address, latitude, longitude, phone, website
		FROM estabelecimentos
		WHERE (name ILIKE $1 OR cuisine ILIKE $1)
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND `+distanceExpr+` <= $4
		ORDER BY `+distanceExpr+` ASC
		LIMIT $5
	`, likePattern(term), s.CenterLat, s.CenterLng, s.RadiusKm*1000, limit)
	if err != nil {
		return nil, fmt.Errorf("nearby osm mirror: %w", err)
	}
	defer rows.Close()

	var out []models.Candidate
	for rows.Next() {
		var (
			c        models.Candidate
			osmType  string
			osmID    int64
			lat, lng float64
		)
		if err := rows.Scan(&osmType, &osmID, &c.Name, &c.Category, &c.Address, &lat, &lng, &c.Phone, &c.Website); err != nil {
			return nil, fmt.Errorf("nearby osm mirror scan: %w", err)
		}
		c.Latitude, c.Longitude = floatPtr(lat), floatPtr(lng)
		c.ExternalID = osmType + "/" + strconv.FormatInt(osmID, 10)
		c.Category = normalizeCategory(c.Category)
		s.tagProximity(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Every mirror row lies inside the configured radius, so it counts as local.
func (s *LocalStore) tagProximity(c *models.Candidate) {
	c.Source = models.SourceLocalProximity
	c.City = s.TargetCity
	c.IsTargetCity = true
}

// LocalDatabase exposes SearchRestaurants as a Source.
type LocalDatabase struct {
	Store *LocalStore
	Limit int
}

func (LocalDatabase) Name() string { return models.SourceLocalDatabase }

func (l LocalDatabase) Search(ctx context.Context, term string, f models.SearchFilters) ([]models.Candidate, error) {
	return l.Store.SearchRestaurants(ctx, term, f, l.Limit)
}

// LocalProximity exposes Nearby as a Source.
type LocalProximity struct {
	Store *LocalStore
	Limit int
}

func (LocalProximity) Name() string { return models.SourceLocalProximity }

func (l LocalProximity) Search(ctx context.Context, term string, _ models.SearchFilters) ([]models.Candidate, error) {
	return l.Store.Nearby(ctx, term, l.Limit)
}

func normalizeCategory(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "restaurant", "fast_food", "food_court", "meal_takeaway", "meal_delivery":
		return "restaurant"
	case "bar", "pub", "night_club", "biergarten":
		return "bar"
	case "cafe", "coffee", "ice_cream":
		return "cafe"
	case "bakery":
		return "bakery"
	case "":
		return "restaurant"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

func categoryFromGoogleTypes(types []string) string {
	for _, t := range types {
		switch strings.TrimSpace(t) {
		case "bakery", "cafe", "bar", "restaurant", "meal_takeaway", "meal_delivery", "night_club":
			return normalizeCategory(t)
		}
	}
	return "restaurant"
}
