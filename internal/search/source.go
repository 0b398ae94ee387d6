package search

import (
	"context"

	"beastfood/pkg/models"
)

// Source is implemented by every adapter the aggregator can call. Each
// adapter maps its own wire format into models.Candidate.
type Source interface {
	Name() string
	Search(ctx context.Context, term string, f models.SearchFilters) ([]models.Candidate, error)
}

// Generator produces candidates from a generative-text provider.
type Generator interface {
	Name() string
	Enabled() bool
	Suggest(ctx context.Context, term string, f models.SearchFilters) ([]models.Candidate, error)
}

func floatPtr(f float64) *float64 { return &f }
