package places

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"beastfood/internal/search"
	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

// Mirror reads and writes the estabelecimentos (OpenStreetMap) and
// estabelecimentos_google tables.
type Mirror struct {
	DB *sql.DB
}

func NewMirror(db *sql.DB) *Mirror {
	return &Mirror{DB: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

// SaveOSM upserts places keyed by (osm_type, osm_id) in one transaction.
func (m *Mirror) SaveOSM(ctx context.Context, city string, places []search.OverpassPlace) (int, error) {
	n := 0
	err := database.WithTx(ctx, m.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO estabelecimentos (osm_id, osm_type, name, amenity, cuisine, address, city,
				latitude, longitude, phone, website, opening_hours, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
			ON CONFLICT (osm_type, osm_id) DO UPDATE SET
				name = EXCLUDED.name,
				amenity = EXCLUDED.amenity,
				cuisine = EXCLUDED.cuisine,
				address = EXCLUDED.address,
				city = EXCLUDED.city,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				phone = EXCLUDED.phone,
				website = EXCLUDED.website,
				opening_hours = EXCLUDED.opening_hours,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("prepare osm upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range places {
			var lat, lng sql.NullFloat64
			if p.HasCoords {
				lat = sql.NullFloat64{Float64: p.Lat, Valid: true}
				lng = sql.NullFloat64{Float64: p.Lng, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, p.ID, p.Type, p.Name, p.Amenity, p.Cuisine, p.Address, city,
				lat, lng, p.Phone, p.Website, p.OpeningHours); err != nil {
				return fmt.Errorf("upsert osm %s/%d: %w", p.Type, p.ID, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SaveGoogle upserts places keyed by place_id in one transaction.
func (m *Mirror) SaveGoogle(ctx context.Context, results []search.PlaceResult) (int, error) {
	n := 0
	err := database.WithTx(ctx, m.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO estabelecimentos_google (place_id, name, address, latitude, longitude, rating,
				user_ratings_total, price_level, types, business_status, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			ON CONFLICT (place_id) DO UPDATE SET
				name = EXCLUDED.name,
				address = EXCLUDED.address,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				rating = EXCLUDED.rating,
				user_ratings_total = EXCLUDED.user_ratings_total,
				price_level = EXCLUDED.price_level,
				types = EXCLUDED.types,
				business_status = EXCLUDED.business_status,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("prepare google upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range results {
			var lat, lng sql.NullFloat64
			if loc := r.Geometry.Location; loc.Lat != 0 || loc.Lng != 0 {
				lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
				lng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, r.PlaceID, r.Name, r.Address(), lat, lng, r.Rating,
				r.UserRatingsTotal, r.PriceLevel, strings.Join(r.Types, ","), r.BusinessStatus); err != nil {
				return fmt.Errorf("upsert place %s: %w", r.PlaceID, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type OSMQuery struct {
	Q      string
	Type   string
	Limit  int
	Offset int
}

const osmColumns = `id, osm_id, osm_type, name, amenity, cuisine, address, city, latitude, longitude,
	phone, website, opening_hours, updated_at`

func scanOSM(row interface{ Scan(...any) error }, extra ...any) (*models.OSMPlace, error) {
	var (
		p        models.OSMPlace
		lat, lng sql.NullFloat64
	)
	dest := []any{&p.ID, &p.OSMID, &p.OSMType, &p.Name, &p.Amenity, &p.Cuisine, &p.Address, &p.City,
		&lat, &lng, &p.Phone, &p.Website, &p.OpeningHours, &p.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		p.Latitude, p.Longitude = &lat.Float64, &lng.Float64
	}
	return &p, nil
}

// ListOSM filters by name/cuisine substring and amenity, ordered by name.
func (m *Mirror) ListOSM(ctx context.Context, q OSMQuery) ([]models.OSMPlace, int, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(q.Q); s != "" {
		args = append(args, likePattern(s))
		n := strconv.Itoa(len(args))
		where = append(where, "(name ILIKE $"+n+" OR cuisine ILIKE $"+n+")")
	}
	if t := strings.TrimSpace(q.Type); t != "" {
		args = append(args, strings.ToLower(t))
		where = append(where, "amenity = $"+strconv.Itoa(len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := m.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM estabelecimentos`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count osm mirror: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	rows, err := m.DB.QueryContext(ctx,
		`SELECT `+osmColumns+` FROM estabelecimentos`+clause+
			fmt.Sprintf(` ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list osm mirror: %w", err)
	}
	defer rows.Close()

	out := make([]models.OSMPlace, 0, q.Limit)
	for rows.Next() {
		p, err := scanOSM(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan osm row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// NearbyOSM returns mirror rows within radiusKm of (lat, lng), closest first.
func (m *Mirror) NearbyOSM(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.OSMPlace, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT `+osmColumns+`, dist FROM (
			SELECT `+osmColumns+`,
			       earth_distance(ll_to_earth($1, $2), ll_to_earth(latitude, longitude)) AS dist
			FROM estabelecimentos
			WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		) e
		WHERE dist <= $3
		ORDER BY dist ASC
		LIMIT $4
	`, lat, lng, radiusKm*1000, limit)
	if err != nil {
		return nil, fmt.Errorf("nearby osm mirror: %w", err)
	}
	defer rows.Close()

	out := make([]models.OSMPlace, 0)
	for rows.Next() {
		var meters float64
		p, err := scanOSM(rows, &meters)
		if err != nil {
			return nil, fmt.Errorf("scan osm row: %w", err)
		}
		km := meters / 1000
		p.DistanceKm = &km
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// CachedGoogle searches the Google mirror by name, best rated first.
func (m *Mirror) CachedGoogle(ctx context.Context, q string, limit int) ([]models.GooglePlace, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT id, place_id, name, address, latitude, longitude, rating, user_ratings_total, price_level,
		       types, business_status, updated_at
		FROM estabelecimentos_google
		WHERE name ILIKE $1
		ORDER BY rating DESC, user_ratings_total DESC, id ASC
		LIMIT $2
	`, likePattern(q), limit)
	if err != nil {
		return nil, fmt.Errorf("cached google places: %w", err)
	}
	defer rows.Close()

	out := make([]models.GooglePlace, 0)
	for rows.Next() {
		var (
			p        models.GooglePlace
			lat, lng sql.NullFloat64
			types    string
		)
		if err := rows.Scan(&p.ID, &p.PlaceID, &p.Name, &p.Address, &lat, &lng, &p.Rating, &p.UserRatingsTotal,
			&p.PriceLevel, &types, &p.BusinessStatus, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan google row: %w", err)
		}
		if lat.Valid && lng.Valid {
			p.Latitude, p.Longitude = &lat.Float64, &lng.Float64
		}
		p.Types = splitTypes(types)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func splitTypes(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
