package search

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastfood/internal/auth"
	"beastfood/internal/restaurants"
	"beastfood/pkg/logger"
	"beastfood/pkg/models"
)

var restaurantCols = []string{
	"id", "name", "description", "address", "city", "state", "category", "price_level", "rating", "rating_count",
	"latitude", "longitude", "phone", "website", "image_url", "source", "external_id", "status", "owner_id", "created_by",
	"created_at", "updated_at",
}

func newSearchRouter(t *testing.T, agg *Aggregator) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if agg == nil {
		agg = &Aggregator{Local: &fakeSource{name: models.SourceLocalDatabase}, Log: logger.NewNop()}
	}
	requireAuth := func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u-1", Role: auth.RoleUser})
		c.Next()
	}

	r := gin.New()
	NewHandler(agg, &Ingestor{Restaurants: restaurants.NewRepo(db)}).
		RegisterRoutes(r.Group("/api/ai-restaurant-search"), requireAuth)
	return r, mock
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchEndpointValidatesQuery(t *testing.T) {
	r, _ := newSearchRouter(t, nil)

	cases := []string{
		"/api/ai-restaurant-search/search",
		"/api/ai-restaurant-search/search?q=%20%20",
		"/api/ai-restaurant-search/search?q=pizza&min_price=0x",
		"/api/ai-restaurant-search/search?q=pizza&max_price=6",
		"/api/ai-restaurant-search/search?q=pizza&min_price=4&max_price=2",
		"/api/ai-restaurant-search/search?q=pizza&min_rating=5.5",
		"/api/ai-restaurant-search/search?q=pizza&min_rating=-1",
	}
	for _, path := range cases {
		assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, path, "").Code, path)
	}
}

func TestSearchEndpointReturnsEnvelope(t *testing.T) {
	bank, err := LoadBank("", "Franca", "SP")
	require.NoError(t, err)
	agg := &Aggregator{
		Local:    &fakeSource{name: models.SourceLocalDatabase},
		External: []Source{&GooglePlaces{}},
		Bank:     bank,
		Log:      logger.NewNop(),
	}
	r, _ := newSearchRouter(t, agg)

	w := serve(r, http.MethodGet, "/api/ai-restaurant-search/search?q=pizza", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SearchTerm  string `json:"search_term"`
		Total       int    `json:"total"`
		Sources     []string
		Suggestions []map[string]any `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pizza", body.SearchTerm)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, []string{models.SourceLocalSuggestions}, body.Sources)
	for _, s := range body.Suggestions {
		assert.Equal(t, true, s["is_franca_sp"])
		assert.Equal(t, models.SourceLocalSuggestions, s["source"])
	}
}

func TestCreateRestaurantRejectsMissingFields(t *testing.T) {
	r, mock := newSearchRouter(t, nil)

	for _, body := range []string{
		`{"name":"","address":"Rua A, 1"}`,
		`{"name":"Cantina X","address":"   "}`,
		`{"name":"Cantina X","address":"Rua A, 1","price_level":9}`,
		`not json`,
	} {
		assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/ai-restaurant-search/create-restaurant", body).Code, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRestaurantConflictsOnNameOrAddress(t *testing.T) {
	r, mock := newSearchRouter(t, nil)

	now := time.Now()
	for _, body := range []string{
		`{"name":"CANTINA X","address":"Outra Rua, 5"}`,
		`{"name":"Outro Nome","address":"rua a, 1"}`,
	} {
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`LOWER\(name\) = LOWER\(\$1\) OR LOWER\(address\) = LOWER\(\$2\)`).
			WillReturnRows(sqlmock.NewRows(restaurantCols).AddRow(5, "Cantina X", "", "Rua A, 1", "Franca", "SP",
				"restaurant", 3, 0.0, 0, nil, nil, "", "", "", "ai_search", "", "active", nil, nil, now, now))
		mock.ExpectRollback()

		w := serve(r, http.MethodPost, "/api/ai-restaurant-search/create-restaurant", body)
		assert.Equal(t, http.StatusConflict, w.Code, body)
		assert.Contains(t, w.Body.String(), `"Cantina X"`)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRestaurantAppliesDefaults(t *testing.T) {
	r, mock := newSearchRouter(t, nil)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM restaurants`).WillReturnRows(sqlmock.NewRows(restaurantCols))
	mock.ExpectQuery(`INSERT INTO restaurants`).
		WithArgs("Cantina X", "", "Rua A, 1", "Franca", "SP", "restaurant", 3, 4.2, 0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", "", "ai_search", "", "active", sqlmock.AnyArg(), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(12, now, now))
	mock.ExpectCommit()

	w := serve(r, http.MethodPost, "/api/ai-restaurant-search/create-restaurant",
		`{"name":" Cantina X ","address":"Rua A, 1","city":"Franca","state":"SP","rating":4.2}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Restaurant models.Restaurant `json:"restaurant"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(12), body.Restaurant.ID)
	assert.Equal(t, "ai_search", body.Restaurant.Source)
	assert.Equal(t, 3, body.Restaurant.PriceLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourcesEndpoint(t *testing.T) {
	r, _ := newSearchRouter(t, nil)
	w := serve(r, http.MethodGet, "/api/ai-restaurant-search/sources", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.SourceLocalDatabase)
}
