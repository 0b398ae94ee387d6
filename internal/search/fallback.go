package search

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"beastfood/pkg/models"
)

var (
	fallbackStreets = []string{
		"Rua Voluntários da Franca", "Avenida Champagnat", "Rua Major Claudiano",
		"Avenida Presidente Vargas", "Rua Campos Salles", "Avenida Hélio Palermo",
		"Rua Marechal Deodoro", "Avenida São Vicente", "Rua General Carneiro",
	}
	fallbackDistricts = []string{
		"Centro", "Cidade Nova", "Estação", "Jardim Petráglia", "São José", "Vila Santa Cruz",
	}
	fallbackNames = map[string][]string{
		"restaurant": {"Restaurante", "Cantina", "Sabor de", "Cozinha"},
		"bar":        {"Bar", "Boteco", "Choperia"},
		"cafe":       {"Café", "Cafeteria", "Empório"},
		"bakery":     {"Padaria", "Panificadora", "Confeitaria"},
	}
	fallbackSuffixes = []string{"da Praça", "Central", "do Bairro", "Mogiana", "Franca", "Bom Gosto"}
)

// Fallback synthesizes placeholder candidates. The generator is seeded, so
// output is reproducible for a given seed and call sequence.
type Fallback struct {
	City  string
	State string
	Count int

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFallback(city, state string, seed int64) *Fallback {
	return &Fallback{City: city, State: state, Count: 3, rnd: rand.New(rand.NewSource(seed))}
}

func (g *Fallback) Generate(term string, f models.SearchFilters) []models.Candidate {
	category := guessCategory(term, f.Type)
	prefixes, ok := fallbackNames[normalizeCategory(category)]
	if !ok {
		prefixes = fallbackNames["restaurant"]
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.Count
	if n <= 0 {
		n = 3
	}
	out := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s %s %s", pick(g.rnd, prefixes), titleCase(term), pick(g.rnd, fallbackSuffixes))
		addr := fmt.Sprintf("%s, %d - %s", pick(g.rnd, fallbackStreets), 100+g.rnd.Intn(2900), pick(g.rnd, fallbackDistricts))
		out = append(out, models.Candidate{
			Name:         strings.Join(strings.Fields(name), " "),
			Address:      addr,
			City:         g.City,
			State:        g.State,
			Category:     category,
			Description:  "Sugestão gerada automaticamente; confirme os dados antes de cadastrar.",
			PriceLevel:   clampPrice(1+g.rnd.Intn(4), f),
			Rating:       clampRating(float64(35+g.rnd.Intn(14))/10, f),
			RatingCount:  5 + g.rnd.Intn(150),
			Source:       models.SourceFallback,
			ExternalID:   "fallback_" + uuid.NewString(),
			IsTargetCity: true,
		})
	}
	return out
}

func pick(r *rand.Rand, xs []string) string { return xs[r.Intn(len(xs))] }

func clampPrice(p int, f models.SearchFilters) int {
	if f.MinPrice > 0 && p < f.MinPrice {
		p = f.MinPrice
	}
	if f.MaxPrice > 0 && p > f.MaxPrice {
		p = f.MaxPrice
	}
	return p
}

func clampRating(r float64, f models.SearchFilters) float64 {
	if r < f.MinRating {
		r = f.MinRating
	}
	if r > 5 {
		r = 5
	}
	return r
}

// guessCategory honours an explicit type verbatim so the result passes the
// type filter; otherwise it infers one from the term.
func guessCategory(term, explicit string) string {
	if t := strings.ToLower(strings.TrimSpace(explicit)); t != "" {
		return t
	}
	t := foldTerm(term)
	switch {
	case strings.Contains(t, "padaria"), strings.Contains(t, "pao"), strings.Contains(t, "confeitaria"):
		return "bakery"
	case strings.Contains(t, "cafe"), strings.Contains(t, "sorvet"), strings.Contains(t, "acai"), strings.Contains(t, "doce"):
		return "cafe"
	case strings.Contains(t, "bar"), strings.Contains(t, "cerveja"), strings.Contains(t, "chopp"), strings.Contains(t, "boteco"):
		return "bar"
	default:
		return "restaurant"
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
