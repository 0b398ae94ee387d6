package restaurants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"beastfood/pkg/database"
	"beastfood/pkg/models"
)

var ErrDuplicate = errors.New("restaurant already exists")

// DuplicateError carries the row that blocked an insert, when it is known.
type DuplicateError struct {
	Existing *models.Restaurant
}

func (e *DuplicateError) Error() string { return ErrDuplicate.Error() }
func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// createLockKey serializes duplicate checks across concurrent creations.
const createLockKey int64 = 0x6265617374 // "beast"

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q         string
	Category  string
	MinPrice  int
	MaxPrice  int
	MinRating float64
	Limit     int
	Offset    int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const columns = `id, name, description, address, city, state, category, price_level, rating, rating_count,
	latitude, longitude, phone, website, image_url, source, external_id, status, owner_id, created_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// QualifiedColumns prefixes every restaurant column with alias, for joins.
func QualifiedColumns(alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Scan reads a row selected with columns or QualifiedColumns; extra
// destinations follow the restaurant columns.
func Scan(row rowScanner, extra ...any) (*models.Restaurant, error) {
	return scanRestaurant(row, extra...)
}

func scanRestaurant(row rowScanner, extra ...any) (*models.Restaurant, error) {
	var (
		r         models.Restaurant
		lat, lng  sql.NullFloat64
		ownerID   sql.NullString
		createdBy sql.NullString
	)
	dest := []any{
		&r.ID, &r.Name, &r.Description, &r.Address, &r.City, &r.State, &r.Category, &r.PriceLevel, &r.Rating, &r.RatingCount,
		&lat, &lng, &r.Phone, &r.Website, &r.ImageURL, &r.Source, &r.ExternalID, &r.Status, &ownerID, &createdBy,
		&r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		r.Latitude, r.Longitude = &lat.Float64, &lng.Float64
	}
	r.OwnerID = ownerID.String
	r.CreatedBy = createdBy.String
	return &r, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Restaurant, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+columns+` FROM restaurants WHERE id = $1`, id)
	rest, err := scanRestaurant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return rest, nil
}

// GetDetail loads an active restaurant with photos, services, highlights and hours.
func (r *Repo) GetDetail(ctx context.Context, id int64) (*models.RestaurantDetail, error) {
	rest, err := r.GetByID(ctx, id)
	if err != nil || rest == nil || rest.Status != models.RestaurantActive {
		return nil, err
	}

	d := &models.RestaurantDetail{Restaurant: *rest}
	if d.Photos, err = r.photos(ctx, id); err != nil {
		return nil, err
	}
	if d.Services, err = r.stringList(ctx, `SELECT service FROM restaurant_services WHERE restaurant_id = $1 ORDER BY service`, id); err != nil {
		return nil, err
	}
	if d.Highlights, err = r.stringList(ctx, `SELECT highlight FROM restaurant_highlights WHERE restaurant_id = $1 ORDER BY highlight`, id); err != nil {
		return nil, err
	}
	if d.Hours, err = r.hours(ctx, id); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Repo) photos(ctx context.Context, id int64) ([]models.Photo, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, url, uploaded_by, created_at
		FROM restaurant_photos
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("photos query: %w", err)
	}
	defer rows.Close()

	out := []models.Photo{}
	for rows.Next() {
		var (
			p  models.Photo
			by sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.URL, &by, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("photos scan: %w", err)
		}
		p.UploadedBy = by.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) stringList(ctx context.Context, q string, id int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) hours(ctx context.Context, id int64) ([]models.OperatingHour, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT day_of_week, open_time, close_time, closed
		FROM restaurant_operating_hours
		WHERE restaurant_id = $1
		ORDER BY day_of_week
	`, id)
	if err != nil {
		return nil, fmt.Errorf("hours query: %w", err)
	}
	defer rows.Close()

	out := []models.OperatingHour{}
	for rows.Next() {
		var h models.OperatingHour
		if err := rows.Scan(&h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.Closed); err != nil {
			return nil, fmt.Errorf("hours scan: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Restaurant, error) {
	sqlStr, args := buildListSQL(q, false)
	return r.query(ctx, sqlStr, args...)
}

func (r *Repo) query(ctx context.Context, sqlStr string, args ...any) ([]models.Restaurant, error) {
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := []models.Restaurant{}
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *rest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the paged SELECT over active restaurants.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := `SELECT ` + columns + ` FROM restaurants`
	if countOnly {
		base = `SELECT COUNT(*) FROM restaurants`
	}

	where := []string{`status = 'active'`}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if kw := strings.TrimSpace(q.Q); kw != "" {
		p := arg("%" + kw + "%")
		where = append(where, "(name ILIKE "+p+" OR description ILIKE "+p+" OR category ILIKE "+p+")")
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		where = append(where, "LOWER(category) = LOWER("+arg(c)+")")
	}
	if q.MinPrice > 0 {
		where = append(where, "price_level >= "+arg(q.MinPrice))
	}
	if q.MaxPrice > 0 {
		where = append(where, "price_level <= "+arg(q.MaxPrice))
	}
	if q.MinRating > 0 {
		where = append(where, "rating >= "+arg(q.MinRating))
	}

	sqlStr := base + " WHERE " + strings.Join(where, " AND ")
	if !countOnly {
		sqlStr += " ORDER BY rating DESC, name ASC"
		sqlStr += " LIMIT " + arg(q.Limit) + " OFFSET " + arg(q.Offset)
	}
	return sqlStr, args
}

// Nearby orders active restaurants by great-circle distance from (lat, lng).
func (r *Repo) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.Restaurant, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+columns+`, earth_distance(ll_to_earth($1, $2), ll_to_earth(latitude, longitude)) / 1000.0 AS distance_km
		FROM restaurants
		WHERE status = 'active'
		  AND latitude IS NOT NULL AND longitude IS NOT NULL
		  AND earth_distance(ll_to_earth($1, $2), ll_to_earth(latitude, longitude)) <= $3
		ORDER BY distance_km ASC
		LIMIT $4
	`, lat, lng, radiusKm*1000, limit)
	if err != nil {
		return nil, fmt.Errorf("nearby query: %w", err)
	}
	defer rows.Close()

	out := []models.Restaurant{}
	for rows.Next() {
		var dist float64
		rest, err := scanRestaurant(rows, &dist)
		if err != nil {
			return nil, fmt.Errorf("nearby scan: %w", err)
		}
		rest.DistanceKm = &dist
		out = append(out, *rest)
	}
	return out, rows.Err()
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]models.Restaurant, error) {
	return r.query(ctx, `SELECT `+columns+` FROM restaurants WHERE owner_id = $1 ORDER BY name ASC`, ownerID)
}

// FindDuplicate matches name OR address case-insensitively.
func (r *Repo) FindDuplicate(ctx context.Context, q Querier, name, address string) (*models.Restaurant, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+columns+`
		FROM restaurants
		WHERE LOWER(name) = LOWER($1) OR LOWER(address) = LOWER($2)
		ORDER BY id
		LIMIT 1
	`, strings.TrimSpace(name), strings.TrimSpace(address))
	rest, err := scanRestaurant(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate: %w", err)
	}
	return rest, nil
}

// Insert writes rest and fills its ID and timestamps. A unique violation
// becomes ErrDuplicate.
func (r *Repo) Insert(ctx context.Context, q Querier, rest *models.Restaurant) error {
	if rest.Status == "" {
		rest.Status = models.RestaurantActive
	}
	if rest.Category == "" {
		rest.Category = "restaurant"
	}
	if rest.PriceLevel == 0 {
		rest.PriceLevel = 3
	}
	if rest.Source == "" {
		rest.Source = "user"
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO restaurants (name, description, address, city, state, category, price_level, rating, rating_count,
			latitude, longitude, phone, website, image_url, source, external_id, status, owner_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at
	`,
		strings.TrimSpace(rest.Name), rest.Description, strings.TrimSpace(rest.Address), rest.City, rest.State,
		rest.Category, rest.PriceLevel, rest.Rating, rest.RatingCount, nullFloat(rest.Latitude), nullFloat(rest.Longitude),
		rest.Phone, rest.Website, rest.ImageURL, rest.Source, rest.ExternalID, rest.Status,
		nullString(rest.OwnerID), nullString(rest.CreatedBy),
	).Scan(&rest.ID, &rest.CreatedAt, &rest.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return &DuplicateError{}
		}
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

// CreateUnique inserts rest unless a restaurant with the same name or address
// exists. The check runs under a transaction-scoped advisory lock and the
// unique index backs it up.
func (r *Repo) CreateUnique(ctx context.Context, rest *models.Restaurant) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		return r.InsertUnique(ctx, tx, rest)
	})
}

// InsertUnique takes the creation lock inside tx, rejects name or address
// collisions with a *DuplicateError and inserts rest.
func (r *Repo) InsertUnique(ctx context.Context, tx *sql.Tx, rest *models.Restaurant) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, createLockKey); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	existing, err := r.FindDuplicate(ctx, tx, rest.Name, rest.Address)
	if err != nil {
		return err
	}
	if existing != nil {
		return &DuplicateError{Existing: existing}
	}
	return r.Insert(ctx, tx, rest)
}

type UpdateFields struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	Category    *string  `json:"category"`
	PriceLevel  *int     `json:"price_level"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       *string  `json:"phone"`
	Website     *string  `json:"website"`
	ImageURL    *string  `json:"image_url"`
}

func (u UpdateFields) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Address == nil && u.City == nil && u.State == nil &&
		u.Category == nil && u.PriceLevel == nil && u.Latitude == nil && u.Longitude == nil &&
		u.Phone == nil && u.Website == nil && u.ImageURL == nil
}

// Update applies the non-nil fields; it returns false when no row matched.
func (r *Repo) Update(ctx context.Context, id int64, u UpdateFields) (bool, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if u.Name != nil {
		set("name", strings.TrimSpace(*u.Name))
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Address != nil {
		set("address", strings.TrimSpace(*u.Address))
	}
	if u.City != nil {
		set("city", *u.City)
	}
	if u.State != nil {
		set("state", *u.State)
	}
	if u.Category != nil {
		set("category", *u.Category)
	}
	if u.PriceLevel != nil {
		set("price_level", *u.PriceLevel)
	}
	if u.Latitude != nil {
		set("latitude", *u.Latitude)
	}
	if u.Longitude != nil {
		set("longitude", *u.Longitude)
	}
	if u.Phone != nil {
		set("phone", *u.Phone)
	}
	if u.Website != nil {
		set("website", *u.Website)
	}
	if u.ImageURL != nil {
		set("image_url", *u.ImageURL)
	}
	if len(sets) == 0 {
		return true, nil
	}

	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		`UPDATE restaurants SET `+strings.Join(sets, ", ")+`, updated_at = NOW() WHERE id = $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, &DuplicateError{}
		}
		return false, fmt.Errorf("update restaurant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update restaurant rows: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) SetStatus(ctx context.Context, id int64, status string) (bool, error) {
	return r.execOne(ctx, "set status", `UPDATE restaurants SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
}

func (r *Repo) SetOwner(ctx context.Context, id int64, ownerID string) (bool, error) {
	return r.execOne(ctx, "set owner", `UPDATE restaurants SET owner_id = $1, updated_at = NOW() WHERE id = $2`, nullString(ownerID), id)
}

func (r *Repo) execOne(ctx context.Context, what, q string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s rows: %w", what, err)
	}
	return n > 0, nil
}

func (r *Repo) AddPhoto(ctx context.Context, restaurantID int64, url, userID string) (*models.Photo, error) {
	p := models.Photo{URL: url, UploadedBy: userID}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO restaurant_photos (restaurant_id, url, uploaded_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, restaurantID, url, nullString(userID)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add photo: %w", err)
	}
	return &p, nil
}

func (r *Repo) ReplaceHours(ctx context.Context, id int64, hours []models.OperatingHour) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM restaurant_operating_hours WHERE restaurant_id = $1`, id); err != nil {
			return fmt.Errorf("clear hours: %w", err)
		}
		for _, h := range hours {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO restaurant_operating_hours (restaurant_id, day_of_week, open_time, close_time, closed)
				VALUES ($1, $2, $3, $4, $5)
			`, id, h.DayOfWeek, h.OpenTime, h.CloseTime, h.Closed); err != nil {
				return fmt.Errorf("insert hours: %w", err)
			}
		}
		return nil
	})
}

func (r *Repo) ReplaceServices(ctx context.Context, id int64, services []string) error {
	return r.replaceList(ctx, "restaurant_services", "service", id, services)
}

func (r *Repo) ReplaceHighlights(ctx context.Context, id int64, highlights []string) error {
	return r.replaceList(ctx, "restaurant_highlights", "highlight", id, highlights)
}

// table and col are package constants, never user input.
func (r *Repo) replaceList(ctx context.Context, table, col string, id int64, values []string) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE restaurant_id = $1`, id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		seen := map[string]bool{}
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" || seen[strings.ToLower(v)] {
				continue
			}
			seen[strings.ToLower(v)] = true
			if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (restaurant_id, `+col+`) VALUES ($1, $2)`, id, v); err != nil {
				return fmt.Errorf("insert %s: %w", table, err)
			}
		}
		return nil
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
