package search

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"beastfood/pkg/models"
)

//go:embed suggestions.yaml
var defaultSuggestions []byte

type bankTemplate struct {
	Name        string  `yaml:"name"`
	Address     string  `yaml:"address"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
	PriceLevel  int     `yaml:"price_level"`
	Rating      float64 `yaml:"rating"`
	RatingCount int     `yaml:"rating_count"`
}

type bankEntry struct {
	Key       string         `yaml:"key"`
	Templates []bankTemplate `yaml:"templates"`
}

// Bank is the canned suggestion table, keyed by search-term fragment.
type Bank struct {
	City    string
	State   string
	entries []bankEntry
}

// LoadBank reads path, or the embedded table when path is empty.
func LoadBank(path, city, state string) (*Bank, error) {
	data := defaultSuggestions
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read suggestions %s: %w", path, err)
		}
		data = b
	}
	return ParseBank(data, city, state)
}

func ParseBank(data []byte, city, state string) (*Bank, error) {
	var doc struct {
		Suggestions []bankEntry `yaml:"suggestions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	for i := range doc.Suggestions {
		doc.Suggestions[i].Key = foldTerm(doc.Suggestions[i].Key)
		if doc.Suggestions[i].Key == "" {
			return nil, fmt.Errorf("parse suggestions: entry %d has empty key", i)
		}
	}
	return &Bank{City: city, State: state, entries: doc.Suggestions}, nil
}

func (b *Bank) Len() int { return len(b.entries) }

// Lookup returns the templates of the first key contained in term.
func (b *Bank) Lookup(term string) []models.Candidate {
	if b == nil {
		return nil
	}
	t := foldTerm(term)
	if t == "" {
		return nil
	}
	for _, e := range b.entries {
		if !strings.Contains(t, e.Key) {
			continue
		}
		out := make([]models.Candidate, 0, len(e.Templates))
		for i, tpl := range e.Templates {
			out = append(out, models.Candidate{
				Name:         tpl.Name,
				Address:      tpl.Address,
				City:         b.City,
				State:        b.State,
				Category:     normalizeCategory(tpl.Category),
				Description:  tpl.Description,
				PriceLevel:   tpl.PriceLevel,
				Rating:       tpl.Rating,
				RatingCount:  tpl.RatingCount,
				Source:       models.SourceLocalSuggestions,
				ExternalID:   fmt.Sprintf("suggestion_%s_%d", e.Key, i+1),
				IsTargetCity: true,
			})
		}
		return out
	}
	return nil
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "ê", "e", "è", "e",
	"í", "i", "î", "i",
	"ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func foldTerm(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}
