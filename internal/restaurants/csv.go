package restaurants

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"beastfood/pkg/models"
)

var csvHeader = []string{"name", "address", "city", "state", "category", "price_level", "lat", "lng"}

type ImportResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// ImportCSV reads a headed CSV with name, address, city, state, category,
// price_level, lat and lng columns. Rows missing name or address, or carrying
// unparsable numbers, are skipped; name or address collisions are counted as
// duplicates.
func (r *Repo) ImportCSV(ctx context.Context, in io.Reader, source string) (ImportResult, error) {
	var res ImportResult

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	header, err := readHeader(cr)
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}

		rest, ok := restaurantFromRow(header, row)
		if !ok {
			res.Skipped++
			continue
		}
		rest.Source = source

		if err := r.CreateUnique(ctx, rest); err != nil {
			if errors.Is(err, ErrDuplicate) {
				res.Duplicates++
				continue
			}
			return res, fmt.Errorf("import %q: %w", rest.Name, err)
		}
		res.Inserted++
	}
	return res, nil
}

// ExportCSV writes every active restaurant in the layout ImportCSV reads.
func (r *Repo) ExportCSV(ctx context.Context, out io.Writer) (int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+columns+`
		FROM restaurants
		WHERE status = 'active'
		ORDER BY id
	`)
	if err != nil {
		return 0, fmt.Errorf("query restaurants: %w", err)
	}
	defer rows.Close()

	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return n, fmt.Errorf("scan restaurant: %w", err)
		}
		if err := w.Write([]string{
			rest.Name, rest.Address, rest.City, rest.State, rest.Category,
			strconv.Itoa(rest.PriceLevel), formatOptFloat(rest.Latitude), formatOptFloat(rest.Longitude),
		}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	w.Flush()
	return n, w.Error()
}

func restaurantFromRow(header map[string]int, row []string) (*models.Restaurant, bool) {
	rest := &models.Restaurant{
		Name:     valueAt(header, row, "name"),
		Address:  valueAt(header, row, "address"),
		City:     valueAt(header, row, "city"),
		State:    valueAt(header, row, "state"),
		Category: strings.ToLower(valueAt(header, row, "category")),
	}
	if rest.Name == "" || rest.Address == "" {
		return nil, false
	}

	if raw := valueAt(header, row, "price_level"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 5 {
			return nil, false
		}
		rest.PriceLevel = n
	}

	lat, latOK, err := parseOptFloat(valueAt(header, row, "lat"))
	if err != nil || (latOK && (lat < -90 || lat > 90)) {
		return nil, false
	}
	lng, lngOK, err := parseOptFloat(valueAt(header, row, "lng"))
	if err != nil || (lngOK && (lng < -180 || lng > 180)) {
		return nil, false
	}
	if latOK && lngOK {
		rest.Latitude, rest.Longitude = &lat, &lng
	}
	return rest, true
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseOptFloat(raw string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
