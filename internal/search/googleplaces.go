package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"beastfood/pkg/models"
)

var ErrSourceDisabled = errors.New("source disabled")

// GooglePlaces talks to the Places web service (textsearch/details JSON API).
type GooglePlaces struct {
	APIKey  string
	BaseURL string
	City    string
	State   string
	HTTP    *http.Client
}

type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       int      `json:"price_level"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status"`
	Phone            string   `json:"formatted_phone_number"`
	Website          string   `json:"website"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

func (p PlaceResult) Address() string {
	if p.FormattedAddress != "" {
		return p.FormattedAddress
	}
	return p.Vicinity
}

type PlacesPage struct {
	Results       []PlaceResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

func (g *GooglePlaces) Name() string { return models.SourceGooglePlaces }

func (g *GooglePlaces) Enabled() bool { return g != nil && strings.TrimSpace(g.APIKey) != "" }

// Search runs one text search scoped to the target city and keeps only
// results whose formatted address mentions that city.
func (g *GooglePlaces) Search(ctx context.Context, term string, f models.SearchFilters) ([]models.Candidate, error) {
	query := term
	if f.Type != "" {
		query = f.Type + " " + query
	}
	page, err := g.TextSearchPage(ctx, g.cityQuery(query), "")
	if err != nil {
		return nil, err
	}

	out := make([]models.Candidate, 0, len(page.Results))
	for _, r := range page.Results {
		if !g.inTargetCity(r.Address()) {
			continue
		}
		out = append(out, g.ToCandidate(r))
	}
	return out, nil
}

func (g *GooglePlaces) cityQuery(q string) string {
	if g.City == "" {
		return q
	}
	if g.State != "" {
		return fmt.Sprintf("%s em %s, %s", q, g.City, g.State)
	}
	return q + " em " + g.City
}

func (g *GooglePlaces) inTargetCity(address string) bool {
	if g.City == "" {
		return true
	}
	return strings.Contains(strings.ToLower(address), strings.ToLower(g.City))
}

func (g *GooglePlaces) TextSearchPage(ctx context.Context, query, pageToken string) (*PlacesPage, error) {
	params := url.Values{}
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	} else {
		params.Set("query", query)
		params.Set("language", "pt-BR")
	}

	var page PlacesPage
	if err := g.get(ctx, "/textsearch/json", params, &page); err != nil {
		return nil, err
	}
	if err := placesStatus(page.Status, page.ErrorMessage); err != nil {
		return nil, err
	}
	return &page, nil
}

func (g *GooglePlaces) Details(ctx context.Context, placeID string) (*models.Candidate, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("language", "pt-BR")
	params.Set("fields", "place_id,name,formatted_address,geometry,rating,user_ratings_total,price_level,types,formatted_phone_number,website,opening_hours,photos,business_status")

	var resp struct {
		Result       PlaceResult `json:"result"`
		Status       string      `json:"status"`
		ErrorMessage string      `json:"error_message"`
	}
	if err := g.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "NOT_FOUND" || resp.Status == "INVALID_REQUEST" {
		return nil, nil
	}
	if err := placesStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	c := g.ToCandidate(resp.Result)
	return &c, nil
}

func (g *GooglePlaces) get(ctx context.Context, path string, params url.Values, dst any) error {
	if !g.Enabled() {
		return ErrSourceDisabled
	}
	params.Set("key", g.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.BaseURL, "/")+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("google places request: %w", err)
	}
	resp, err := httpClient(g.HTTP).Do(req)
	if err != nil {
		return fmt.Errorf("google places call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("google places http %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("google places decode: %w", err)
	}
	return nil
}

func placesStatus(status, msg string) error {
	switch status {
	case "OK", "ZERO_RESULTS", "":
		return nil
	default:
		return fmt.Errorf("google places status %s: %s", status, msg)
	}
}

func (g *GooglePlaces) ToCandidate(r PlaceResult) models.Candidate {
	c := models.Candidate{
		Name:         r.Name,
		Address:      r.Address(),
		Category:     categoryFromGoogleTypes(r.Types),
		PriceLevel:   r.PriceLevel,
		Rating:       r.Rating,
		RatingCount:  r.UserRatingsTotal,
		Phone:        r.Phone,
		Website:      r.Website,
		Source:       models.SourceGooglePlaces,
		ExternalID:   r.PlaceID,
		IsTargetCity: g.City != "" && g.inTargetCity(r.Address()),
	}
	if c.IsTargetCity {
		c.City, c.State = g.City, g.State
	}
	if r.Geometry.Location.Lat != 0 || r.Geometry.Location.Lng != 0 {
		c.Latitude = floatPtr(r.Geometry.Location.Lat)
		c.Longitude = floatPtr(r.Geometry.Location.Lng)
	}
	if r.OpeningHours != nil {
		c.OpeningHours = r.OpeningHours.WeekdayText
	}
	if len(r.Photos) > 0 {
		c.PhotoRef = r.Photos[0].PhotoReference
	}
	return c
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
