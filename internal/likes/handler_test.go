package likes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/posts"
	"beastfood/pkg/logger"
)

func newRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ndb, nmock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { ndb.Close() })

	svc := notify.NewService(notify.NewRepo(ndb), notify.NewRegistry(4), nil, logger.NewNop())
	requireAuth := func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u-1", Username: "alice", Role: auth.RoleUser})
		c.Next()
	}
	r := gin.New()
	NewHandler(NewRepo(db), posts.NewRepo(db, nil), svc).RegisterRoutes(r.Group("/api/likes"), requireAuth)
	return r, mock, nmock
}

func send(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestLikeNotifiesAuthorAndReturnsCount(t *testing.T) {
	r, mock, notes := newRouter(t)

	mock.ExpectExec(`INSERT INTO likes`).WithArgs(int64(7), "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT user_id FROM posts`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-2"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM likes`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	notes.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("u-2", "u-1", "like", "alice curtiu seu post", "post", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	notes.ExpectQuery(`FROM users WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "avatar_url"}).AddRow("u-1", "alice", "", ""))

	w := send(r, http.MethodPost, "/api/likes/7")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"liked":true,"like_count":4}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, notes.ExpectationsWereMet())
}

func TestLikeTwiceConflicts(t *testing.T) {
	r, mock, _ := newRouter(t)
	mock.ExpectExec(`INSERT INTO likes`).WillReturnError(&pq.Error{Code: "23505"})
	assert.Equal(t, http.StatusConflict, send(r, http.MethodPost, "/api/likes/7").Code)
}

func TestLikeMissingPost(t *testing.T) {
	r, mock, _ := newRouter(t)
	mock.ExpectExec(`INSERT INTO likes`).WillReturnError(&pq.Error{Code: "23503"})
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodPost, "/api/likes/7").Code)
}

func TestUnlike(t *testing.T) {
	r, mock, _ := newRouter(t)

	mock.ExpectExec(`DELETE FROM likes`).WithArgs(int64(7), "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM likes`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	w := send(r, http.MethodDelete, "/api/likes/7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":false,"like_count":3}`, w.Body.String())

	mock.ExpectExec(`DELETE FROM likes`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodDelete, "/api/likes/7").Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodDelete, "/api/likes/abc").Code)
}
