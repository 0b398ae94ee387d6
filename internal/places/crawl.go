package places

import (
	"context"
	"time"

	"beastfood/internal/search"
	"beastfood/pkg/logger"
)

// DefaultTerms are the category queries used to sweep a city.
var DefaultTerms = []string{"restaurante", "pizzaria", "lanchonete", "bar", "padaria", "cafeteria", "sorveteria", "churrascaria"}

// Crawler sweeps Google Places text search for the target city, following
// next_page_token, and merges results by place_id.
type Crawler struct {
	Places   *search.GooglePlaces
	MaxPages int
	// PageDelay is how long to wait before a next_page_token becomes valid.
	PageDelay time.Duration
	Log       *logger.Logger
}

func NewCrawler(g *search.GooglePlaces, log *logger.Logger) *Crawler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Crawler{Places: g, MaxPages: 3, PageDelay: 2 * time.Second, Log: log}
}

// Crawl runs every term; a failing term is logged and skipped. Results keep
// first-seen order.
func (c *Crawler) Crawl(ctx context.Context, city, state string, terms []string) ([]search.PlaceResult, error) {
	if !c.Places.Enabled() {
		return nil, search.ErrSourceDisabled
	}

	seen := make(map[string]bool)
	var out []search.PlaceResult
	for _, term := range terms {
		query := term + " em " + city
		if state != "" {
			query += ", " + state
		}
		results, err := c.crawlTerm(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			c.Log.Warn("places crawl term failed", "term", term, "error", err)
			continue
		}
		added := 0
		for _, r := range results {
			if r.PlaceID == "" || seen[r.PlaceID] {
				continue
			}
			seen[r.PlaceID] = true
			out = append(out, r)
			added++
		}
		c.Log.Info("places crawl term done", "term", term, "results", len(results), "new", added)
	}
	return out, nil
}

func (c *Crawler) crawlTerm(ctx context.Context, query string) ([]search.PlaceResult, error) {
	var (
		out   []search.PlaceResult
		token string
	)
	for page := 0; page < c.MaxPages; page++ {
		if token != "" && c.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(c.PageDelay):
			}
		}
		p, err := c.Places.TextSearchPage(ctx, query, token)
		if err != nil {
			if len(out) > 0 {
				return out, nil
			}
			return nil, err
		}
		out = append(out, p.Results...)
		if p.NextPageToken == "" {
			break
		}
		token = p.NextPageToken
	}
	return out, nil
}
