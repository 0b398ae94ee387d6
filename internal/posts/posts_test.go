package posts

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/pending"
	"beastfood/internal/restaurants"
	"beastfood/pkg/logger"
)

var postCols = []string{
	"id", "user_id", "restaurant_id", "restaurant_name", "content", "rating", "image_url", "created_at",
	"username", "name", "avatar_url", "likes", "comments",
}

type env struct {
	router *gin.Engine
	db     sqlmock.Sqlmock
	notes  sqlmock.Sqlmock
}

func newEnv(t *testing.T) env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ndb, nmock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { ndb.Close() })

	repo := NewRepo(db, pending.NewRepo(db, restaurants.NewRepo(db)))
	svc := notify.NewService(notify.NewRepo(ndb), notify.NewRegistry(4), nil, logger.NewNop())
	requireAuth := func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u-1", Role: auth.RoleUser})
		c.Next()
	}

	r := gin.New()
	NewHandler(repo, svc).RegisterRoutes(r.Group("/api/posts"), requireAuth)
	return env{router: r, db: mock, notes: nmock}
}

func (e env) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateValidates(t *testing.T) {
	e := newEnv(t)
	for _, body := range []string{
		`{"content":"   "}`,
		`{"content":"bom","rating":6}`,
		`{"content":"bom","restaurant_id":0}`,
		`{"content":"bom","restaurant_id":3,"suggested_restaurant":{"name":"X","address":"Y"}}`,
		`{"content":"bom","suggested_restaurant":{"name":"X"}}`,
	} {
		assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/posts", body).Code, body)
	}
}

func TestCreateRatedPostRefreshesRestaurant(t *testing.T) {
	e := newEnv(t)

	e.db.ExpectBegin()
	e.db.ExpectQuery(`INSERT INTO posts`).
		WithArgs("u-1", int64(3), "Ótimo rodízio", int64(5), "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	e.db.ExpectExec(`UPDATE restaurants SET\s+rating = COALESCE`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	e.db.ExpectCommit()
	e.db.ExpectQuery(`WHERE p.id = \$1`).WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(10, "u-1", 3, "Churrascaria Gaúcha", "Ótimo rodízio", 5, "", time.Now(),
			"alice", "Alice", "", 0, 0))

	w := e.do(http.MethodPost, "/api/posts", `{"restaurant_id":3,"content":" Ótimo rodízio ","rating":5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"restaurant_name":"Churrascaria Gaúcha"`)
	assert.NoError(t, e.db.ExpectationsWereMet())
}

func TestCreateWithSuggestionCreatesLinkedPendingRow(t *testing.T) {
	e := newEnv(t)
	now := time.Now()

	e.db.ExpectBegin()
	e.db.ExpectQuery(`INSERT INTO posts`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	e.db.ExpectQuery(`INSERT INTO pending_restaurants`).
		WithArgs("Cantina X", "Rua A, 1", "", "", "restaurant", "", 3, sqlmock.AnyArg(), sqlmock.AnyArg(), "u-1", int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(4, now))
	e.db.ExpectCommit()
	e.db.ExpectQuery(`WHERE p.id = \$1`).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(11, "u-1", nil, "", "achei esse lugar", nil, "", now, "alice", "", "", 0, 0))

	e.notes.ExpectQuery(`SELECT id FROM users WHERE role = 'admin'`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := e.do(http.MethodPost, "/api/posts",
		`{"content":"achei esse lugar","suggested_restaurant":{"name":"Cantina X","address":"Rua A, 1"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"pending_restaurant"`)
	assert.Contains(t, w.Body.String(), `"post_id":11`)
	assert.NoError(t, e.db.ExpectationsWereMet())
	assert.NoError(t, e.notes.ExpectationsWereMet())
}

func TestCreateUnknownRestaurant(t *testing.T) {
	e := newEnv(t)
	e.db.ExpectBegin()
	e.db.ExpectQuery(`INSERT INTO posts`).WillReturnError(&pq.Error{Code: "23503"})
	e.db.ExpectRollback()

	w := e.do(http.MethodPost, "/api/posts", `{"restaurant_id":99,"content":"oi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteByNonAuthorIsForbidden(t *testing.T) {
	e := newEnv(t)
	e.db.ExpectBegin()
	e.db.ExpectQuery(`DELETE FROM posts WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(10), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"restaurant_id"}))
	e.db.ExpectCommit()
	e.db.ExpectQuery(`SELECT user_id FROM posts`).WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-2"))

	w := e.do(http.MethodDelete, "/api/posts/10", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, e.db.ExpectationsWereMet())
}

func TestDeleteRefreshesRating(t *testing.T) {
	e := newEnv(t)
	e.db.ExpectBegin()
	e.db.ExpectQuery(`DELETE FROM posts`).WillReturnRows(sqlmock.NewRows([]string{"restaurant_id"}).AddRow(3))
	e.db.ExpectExec(`UPDATE restaurants SET`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	e.db.ExpectCommit()

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/posts/10", "").Code)
	assert.NoError(t, e.db.ExpectationsWereMet())
}

func TestListFiltersByRestaurant(t *testing.T) {
	e := newEnv(t)
	e.db.ExpectQuery(`WHERE p.restaurant_id = \$1 ORDER BY p.created_at DESC, p.id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(3), 20, 0).
		WillReturnRows(sqlmock.NewRows(postCols))

	w := e.do(http.MethodGet, "/api/posts?restaurant_id=3", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
	assert.NoError(t, e.db.ExpectationsWereMet())
}

func TestGetMissingPost(t *testing.T) {
	e := newEnv(t)
	e.db.ExpectQuery(`WHERE p.id = \$1`).WillReturnRows(sqlmock.NewRows(postCols))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/posts/5", "").Code)
}
