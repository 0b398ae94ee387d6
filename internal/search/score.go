package search

import (
	"strings"

	"beastfood/pkg/models"
)

// sourceBonus ranks sources: curated local rows first, generated text last.
var sourceBonus = map[string]float64{
	models.SourceLocalDatabase:    0.3,
	models.SourceGooglePlaces:     0.2,
	models.SourceOpenStreetMap:    0.15,
	models.SourceLocalProximity:   0.15,
	models.SourceLocalSuggestions: 0.1,
	models.SourceFallback:         0.05,
	models.SourceOpenAI:           0,
	models.SourceGemini:           0,
}

// Score returns the candidate confidence, always within [0, 1].
func Score(c models.Candidate, targetCity string) float64 {
	s := 0.5 + sourceBonus[c.Source]
	if c.Rating > 3.5 {
		s += 0.2
	}
	if c.RatingCount > 20 {
		s += 0.1
	}
	if c.IsTargetCity || sameCity(c.City, targetCity) {
		s += 0.1
	}
	if s > 1 {
		s = 1
	}
	if s < 0 {
		s = 0
	}
	return s
}

func sameCity(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && b != "" && strings.EqualFold(a, b)
}

// dedupeKey is lower(name) + "|" + lower(address).
func dedupeKey(c models.Candidate) string {
	return strings.ToLower(strings.TrimSpace(c.Name)) + "|" + strings.ToLower(strings.TrimSpace(c.Address))
}

// Dedupe keeps the first occurrence of every (name, address) pair.
func Dedupe(in []models.Candidate) []models.Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Candidate, 0, len(in))
	for _, c := range in {
		k := dedupeKey(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// matchesFilters treats unknown values (zero price or rating) as a match.
func matchesFilters(c models.Candidate, f models.SearchFilters) bool {
	if f.Type != "" && c.Category != "" && !strings.EqualFold(f.Type, c.Category) {
		return false
	}
	if c.PriceLevel > 0 {
		if f.MinPrice > 0 && c.PriceLevel < f.MinPrice {
			return false
		}
		if f.MaxPrice > 0 && c.PriceLevel > f.MaxPrice {
			return false
		}
	}
	if f.MinRating > 0 && c.Rating > 0 && c.Rating < f.MinRating {
		return false
	}
	return true
}

func filterCandidates(in []models.Candidate, f models.SearchFilters) []models.Candidate {
	out := in[:0:0]
	for _, c := range in {
		if matchesFilters(c, f) {
			out = append(out, c)
		}
	}
	return out
}
