package search

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"beastfood/internal/restaurants"
	"beastfood/pkg/logger"
	"beastfood/pkg/utils"
)

const localLimit = 20

// Stack is the wired search pipeline plus the live adapters other surfaces
// reuse.
type Stack struct {
	Aggregator *Aggregator
	Ingestor   *Ingestor
	Google     *GooglePlaces
	Overpass   *Overpass
}

// Build wires the pipeline from configuration. rdb may be nil, which
// disables result caching.
func Build(cfg *utils.Config, db *sql.DB, rdb *redis.Client, log *logger.Logger) (*Stack, error) {
	s := cfg.Search
	bank, err := LoadBank(s.SuggestionsFile, s.TargetCity, s.TargetState)
	if err != nil {
		return nil, err
	}

	store := NewLocalStore(db, s.TargetCity, s.CenterLat, s.CenterLng, s.RadiusKm)
	google := &GooglePlaces{
		APIKey:  cfg.APIs.GooglePlaces.APIKey,
		BaseURL: cfg.APIs.GooglePlaces.BaseURL,
		City:    s.TargetCity,
		State:   s.TargetState,
		HTTP:    timeoutClient(cfg.APIs.GooglePlaces),
	}
	overpass := &Overpass{
		URL:  cfg.APIs.Overpass.BaseURL,
		City: s.TargetCity,
		HTTP: timeoutClient(cfg.APIs.Overpass),
	}

	agg := &Aggregator{
		Local:    LocalDatabase{Store: store, Limit: localLimit},
		External: []Source{google, overpass, LocalProximity{Store: store, Limit: localLimit}},
		Bank:     bank,
		Generators: []Generator{
			&OpenAI{
				APIKey:  cfg.APIs.OpenAI.APIKey,
				BaseURL: cfg.APIs.OpenAI.BaseURL,
				Model:   cfg.APIs.OpenAI.Model,
				City:    s.TargetCity,
				State:   s.TargetState,
				HTTP:    timeoutClient(cfg.APIs.OpenAI),
			},
			&Gemini{
				APIKey:  cfg.APIs.Gemini.APIKey,
				BaseURL: cfg.APIs.Gemini.BaseURL,
				Model:   cfg.APIs.Gemini.Model,
				City:    s.TargetCity,
				State:   s.TargetState,
				HTTP:    timeoutClient(cfg.APIs.Gemini),
			},
		},
		Fallback:   NewFallback(s.TargetCity, s.TargetState, s.FallbackSeed),
		Threshold:  s.LocalThreshold,
		TargetCity: s.TargetCity,
		Log:        log,
	}
	if rdb != nil {
		agg.Cache = NewRedisCache(rdb, time.Duration(s.CacheTTLSeconds)*time.Second)
	}

	return &Stack{
		Aggregator: agg,
		Ingestor:   &Ingestor{Restaurants: restaurants.NewRepo(db)},
		Google:     google,
		Overpass:   overpass,
	}, nil
}

func timeoutClient(p utils.ProviderConfig) *http.Client {
	t := p.Timeout()
	if t <= 0 {
		t = 15 * time.Second
	}
	return &http.Client{Timeout: t}
}
