package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"beastfood/pkg/models"
)

// Overpass queries OpenStreetMap through an Overpass interpreter.
type Overpass struct {
	URL  string
	City string
	HTTP *http.Client
}

type osmElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// OverpassPlace is a named establishment resolved from a node or way element.
type OverpassPlace struct {
	Type         string
	ID           int64
	Name         string
	Amenity      string
	Cuisine      string
	Address      string
	Lat          float64
	Lng          float64
	HasCoords    bool
	Phone        string
	Website      string
	OpeningHours string
}

func (o *Overpass) Name() string { return models.SourceOpenStreetMap }

func (o *Overpass) Enabled() bool { return o != nil && strings.TrimSpace(o.URL) != "" }

func (o *Overpass) Search(ctx context.Context, term string, _ models.SearchFilters) ([]models.Candidate, error) {
	places, err := o.Fetch(ctx, term)
	if err != nil {
		return nil, err
	}
	out := make([]models.Candidate, 0, len(places))
	for _, p := range places {
		out = append(out, o.ToCandidate(p))
	}
	return out, nil
}

// Fetch runs one area query for food amenities and bakeries. An empty term
// returns every named establishment in the city.
func (o *Overpass) Fetch(ctx context.Context, term string) ([]OverpassPlace, error) {
	if !o.Enabled() {
		return nil, ErrSourceDisabled
	}

	form := url.Values{}
	form.Set("data", o.buildQuery(term))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient(o.HTTP).Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass http %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Elements []osmElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("overpass decode: %w", err)
	}
	return resolveElements(payload.Elements), nil
}

var overpassQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (o *Overpass) buildQuery(term string) string {
	nameFilter := ""
	if t := strings.TrimSpace(term); t != "" {
		nameFilter = fmt.Sprintf(`["name"~"%s",i]`, overpassQuoter.Replace(regexp.QuoteMeta(t)))
	}
	city := overpassQuoter.Replace(o.City)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n")
	fmt.Fprintf(&b, "area[\"name\"=\"%s\"][\"boundary\"=\"administrative\"]->.city;\n", city)
	b.WriteString("(\n")
	fmt.Fprintf(&b, "  nwr[\"amenity\"~\"^(restaurant|bar|cafe|fast_food|pub|ice_cream)$\"][\"name\"]%s(area.city);\n", nameFilter)
	fmt.Fprintf(&b, "  nwr[\"shop\"=\"bakery\"][\"name\"]%s(area.city);\n", nameFilter)
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

// resolveElements keeps tagged nodes and ways; a way takes the coordinates of
// its first referenced node.
func resolveElements(elems []osmElement) []OverpassPlace {
	nodes := make(map[int64]osmElement, len(elems))
	for _, e := range elems {
		if e.Type == "node" {
			nodes[e.ID] = e
		}
	}

	var out []OverpassPlace
	for _, e := range elems {
		name := strings.TrimSpace(e.Tags["name"])
		if name == "" {
			continue
		}
		p := OverpassPlace{
			Type:         e.Type,
			ID:           e.ID,
			Name:         name,
			Amenity:      e.Tags["amenity"],
			Cuisine:      e.Tags["cuisine"],
			Address:      osmAddress(e.Tags),
			Phone:        firstTag(e.Tags, "phone", "contact:phone"),
			Website:      firstTag(e.Tags, "website", "contact:website"),
			OpeningHours: e.Tags["opening_hours"],
		}
		if p.Amenity == "" && e.Tags["shop"] == "bakery" {
			p.Amenity = "bakery"
		}

		switch e.Type {
		case "node":
			p.Lat, p.Lng, p.HasCoords = e.Lat, e.Lon, true
		case "way":
			if len(e.Nodes) > 0 {
				if n, ok := nodes[e.Nodes[0]]; ok {
					p.Lat, p.Lng, p.HasCoords = n.Lat, n.Lon, true
				}
			}
		default:
			continue
		}
		out = append(out, p)
	}
	return out
}

func osmAddress(tags map[string]string) string {
	street := tags["addr:street"]
	if street == "" {
		return ""
	}
	addr := street
	if n := tags["addr:housenumber"]; n != "" {
		addr += ", " + n
	}
	if s := tags["addr:suburb"]; s != "" {
		addr += " - " + s
	}
	return addr
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

func (o *Overpass) ToCandidate(p OverpassPlace) models.Candidate {
	c := models.Candidate{
		Name:         p.Name,
		Address:      p.Address,
		City:         o.City,
		Category:     normalizeCategory(p.Amenity),
		Phone:        p.Phone,
		Website:      p.Website,
		Source:       models.SourceOpenStreetMap,
		ExternalID:   fmt.Sprintf("%s/%d", p.Type, p.ID),
		IsTargetCity: true,
	}
	if p.Cuisine != "" {
		c.Description = "Cozinha: " + strings.ReplaceAll(p.Cuisine, ";", ", ")
	}
	if p.OpeningHours != "" {
		c.OpeningHours = []string{p.OpeningHours}
	}
	if p.HasCoords {
		c.Latitude, c.Longitude = floatPtr(p.Lat), floatPtr(p.Lng)
	}
	return c
}
