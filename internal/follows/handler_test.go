package follows

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
	r := gin.New()
	NewHandler(NewRepo(db), svc).RegisterRoutes(r.Group("/api/follows"), func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u-1", Username: "alice", Role: auth.RoleUser})
		c.Next()
	})
	return r, mock, nmock
}

func send(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestFollowSelfIsRejected(t *testing.T) {
	r, mock, _ := newRouter(t)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/follows/u-1").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowNotifiesFollowee(t *testing.T) {
	r, mock, notes := newRouter(t)

	mock.ExpectExec(`INSERT INTO follows`).WithArgs("u-1", "u-2").WillReturnResult(sqlmock.NewResult(0, 1))
	notes.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("u-2", "u-1", "follow", "alice começou a seguir você", "user", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	notes.ExpectQuery(`FROM users WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "avatar_url"}).AddRow("u-1", "alice", "", ""))

	assert.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/api/follows/u-2").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, notes.ExpectationsWereMet())
}

func TestFollowConflictsAndMissingUser(t *testing.T) {
	r, mock, _ := newRouter(t)

	mock.ExpectExec(`INSERT INTO follows`).WillReturnError(&pq.Error{Code: "23505"})
	assert.Equal(t, http.StatusConflict, send(r, http.MethodPost, "/api/follows/u-2").Code)

	mock.ExpectExec(`INSERT INTO follows`).WillReturnError(&pq.Error{Code: "23503"})
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodPost, "/api/follows/ghost").Code)
}

func TestUnfollow(t *testing.T) {
	r, mock, _ := newRouter(t)

	mock.ExpectExec(`DELETE FROM follows`).WithArgs("u-1", "u-2").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.Equal(t, http.StatusOK, send(r, http.MethodDelete, "/api/follows/u-2").Code)

	mock.ExpectExec(`DELETE FROM follows`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodDelete, "/api/follows/u-2").Code)
}

func TestFollowersAndFollowing(t *testing.T) {
	r, mock, _ := newRouter(t)
	cols := []string{"id", "username", "name", "avatar_url"}

	mock.ExpectQuery(`JOIN users u ON u.id = f.follower_id\s+WHERE f.following_id = \$1`).WithArgs("u-2", 50, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "alice", "Alice", ""))
	w := send(r, http.MethodGet, "/api/follows/u-2/followers")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	mock.ExpectQuery(`JOIN users u ON u.id = f.following_id\s+WHERE f.follower_id = \$1`).WithArgs("u-2", 10, 0).
		WillReturnRows(sqlmock.NewRows(cols))
	w = send(r, http.MethodGet, "/api/follows/u-2/following?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
