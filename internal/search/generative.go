package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"beastfood/pkg/models"
)

const suggestionSystemPrompt = "Você é um assistente que sugere estabelecimentos gastronômicos reais ou plausíveis. " +
	"Responda somente com um array JSON, sem texto adicional."

// buildPrompt is shared by every generative provider.
func buildPrompt(term, city, state string, f models.SearchFilters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sugira até 5 estabelecimentos em %s", city)
	if state != "" {
		fmt.Fprintf(&b, " - %s", state)
	}
	fmt.Fprintf(&b, " relacionados à busca %q.\n", term)
	if f.Type != "" {
		fmt.Fprintf(&b, "Tipo desejado: %s.\n", f.Type)
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		fmt.Fprintf(&b, "Faixa de preço (1 a 5): %d a %d.\n", max(f.MinPrice, 1), maxPrice(f))
	}
	if f.MinRating > 0 {
		fmt.Fprintf(&b, "Avaliação mínima: %.1f.\n", f.MinRating)
	}
	b.WriteString(`Cada item deve ter os campos: "name", "address", "category" ` +
		`(restaurant, bar, cafe ou bakery), "description", "price_level" (1 a 5) e "rating" (0 a 5).`)
	return b.String()
}

func maxPrice(f models.SearchFilters) int {
	if f.MaxPrice > 0 {
		return f.MaxPrice
	}
	return 5
}

var suggestionSchema = gojsonschema.NewStringLoader(`{
	"type": "array",
	"minItems": 1,
	"maxItems": 10,
	"items": {
		"type": "object",
		"required": ["name", "address"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"address": {"type": "string", "minLength": 1},
			"category": {"type": "string"},
			"description": {"type": "string"},
			"price_level": {"type": "integer", "minimum": 1, "maximum": 5},
			"rating": {"type": "number", "minimum": 0, "maximum": 5}
		}
	}
}`)

type generatedItem struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	PriceLevel  int     `json:"price_level"`
	Rating      float64 `json:"rating"`
}

// parseGenerated validates raw model output against the suggestion schema and
// maps it to candidates tagged with source.
func parseGenerated(raw, source, city, state string) ([]models.Candidate, error) {
	text := stripCodeFence(raw)

	result, err := gojsonschema.Validate(suggestionSchema, gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("generated suggestions invalid: %v", errs)
	}

	var items []generatedItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("decode generated suggestions: %w", err)
	}

	out := make([]models.Candidate, 0, len(items))
	for _, it := range items {
		price := it.PriceLevel
		if price == 0 {
			price = 3
		}
		out = append(out, models.Candidate{
			Name:         strings.TrimSpace(it.Name),
			Address:      strings.TrimSpace(it.Address),
			City:         city,
			State:        state,
			Category:     normalizeCategory(it.Category),
			Description:  it.Description,
			PriceLevel:   price,
			Rating:       it.Rating,
			Source:       source,
			ExternalID:   "ai_" + uuid.NewString(),
			IsTargetCity: true,
		})
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, dst any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient(client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// OpenAI uses the chat completions endpoint.
type OpenAI struct {
	APIKey  string
	BaseURL string
	Model   string
	City    string
	State   string
	HTTP    *http.Client
}

func (o *OpenAI) Name() string  { return models.SourceOpenAI }
func (o *OpenAI) Enabled() bool { return o != nil && strings.TrimSpace(o.APIKey) != "" }

func (o *OpenAI) Suggest(ctx context.Context, term string, f models.SearchFilters) ([]models.Candidate, error) {
	if !o.Enabled() {
		return nil, ErrSourceDisabled
	}
	reqBody := map[string]any{
		"model":       o.Model,
		"temperature": 0.7,
		"messages": []map[string]string{
			{"role": "system", "content": suggestionSystemPrompt},
			{"role": "user", "content": buildPrompt(term, o.City, o.State, f)},
		},
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	url := strings.TrimRight(o.BaseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, o.HTTP, url, map[string]string{"Authorization": "Bearer " + o.APIKey}, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices")
	}
	return parseGenerated(resp.Choices[0].Message.Content, models.SourceOpenAI, o.City, o.State)
}

// Gemini uses the generateContent endpoint.
type Gemini struct {
	APIKey  string
	BaseURL string
	Model   string
	City    string
	State   string
	HTTP    *http.Client
}

func (g *Gemini) Name() string  { return models.SourceGemini }
func (g *Gemini) Enabled() bool { return g != nil && strings.TrimSpace(g.APIKey) != "" }

func (g *Gemini) Suggest(ctx context.Context, term string, f models.SearchFilters) ([]models.Candidate, error) {
	if !g.Enabled() {
		return nil, ErrSourceDisabled
	}
	reqBody := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []map[string]string{{"text": suggestionSystemPrompt}},
		},
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": buildPrompt(term, g.City, g.State, f)}}},
		},
		"generationConfig": map[string]any{
			"temperature":      0.7,
			"responseMimeType": "application/json",
		},
	}
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.BaseURL, "/"), g.Model)
	if err := postJSON(ctx, g.HTTP, url, map[string]string{"x-goog-api-key": g.APIKey}, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: empty candidates")
	}
	return parseGenerated(resp.Candidates[0].Content.Parts[0].Text, models.SourceGemini, g.City, g.State)
}
