package models

// Source tags carried by search candidates.
const (
	SourceLocalDatabase    = "local_database"
	SourceGooglePlaces     = "google_places"
	SourceOpenStreetMap    = "openstreetmap"
	SourceLocalProximity   = "local_proximity"
	SourceLocalSuggestions = "local_suggestions"
	SourceOpenAI           = "openai"
	SourceGemini           = "gemini"
	SourceFallback         = "fallback"
	SourceAISearch         = "ai_search"
)

// Candidate is a possible establishment found during one search. It is never
// persisted unless promoted through ingestion.
type Candidate struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Category     string   `json:"category"`
	Description  string   `json:"description,omitempty"`
	PriceLevel   int      `json:"price_level"`
	Rating       float64  `json:"rating"`
	RatingCount  int      `json:"rating_count"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	OpeningHours []string `json:"opening_hours,omitempty"`
	PhotoRef     string   `json:"photo_reference,omitempty"`
	Source       string   `json:"source"`
	ExternalID   string   `json:"external_id,omitempty"`
	IsTargetCity bool     `json:"is_franca_sp"`
	Confidence   float64  `json:"confidence"`
}

// SearchFilters narrow an establishment search. Zero values mean "no filter".
type SearchFilters struct {
	Type      string  `json:"type,omitempty"`
	MinPrice  int     `json:"min_price,omitempty"`
	MaxPrice  int     `json:"max_price,omitempty"`
	MinRating float64 `json:"min_rating,omitempty"`
}

type SearchResult struct {
	SearchTerm  string      `json:"search_term"`
	Suggestions []Candidate `json:"suggestions"`
	Sources     []string    `json:"sources"`
	Total       int         `json:"total"`
}
