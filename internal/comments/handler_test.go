package comments

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
	"beastfood/internal/posts"
	"beastfood/pkg/logger"
)

var commentCols = []string{"id", "post_id", "user_id", "content", "created_at", "username", "name", "avatar_url"}

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
	NewHandler(NewRepo(db), posts.NewRepo(db, nil), svc).RegisterRoutes(r.Group("/api/comments"), requireAuth)
	return r, mock, nmock
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCommentNotifiesPostAuthor(t *testing.T) {
	r, mock, notes := newRouter(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO comments`).WithArgs(int64(7), "u-1", "que delícia").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`WHERE c.id = \$1`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 7, "u-1", "que delícia", now, "alice", "Alice", ""))
	mock.ExpectQuery(`SELECT user_id FROM posts WHERE id = \$1`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-2"))

	notes.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("u-2", "u-1", "comment", "alice comentou no seu post", "post", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	notes.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "avatar_url"}).AddRow("u-1", "alice", "Alice", ""))

	w := do(r, http.MethodPost, "/api/comments", `{"post_id":7,"content":"  que delícia "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, notes.ExpectationsWereMet())
}

func TestCreateCommentOnOwnPostDoesNotNotify(t *testing.T) {
	r, mock, notes := newRouter(t)
	mock.ExpectQuery(`INSERT INTO comments`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`WHERE c.id = \$1`).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 7, "u-1", "oi", time.Now(), "alice", "", ""))
	mock.ExpectQuery(`SELECT user_id FROM posts`).WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1"))

	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/comments", `{"post_id":7,"content":"oi"}`).Code)
	assert.NoError(t, notes.ExpectationsWereMet())
}

func TestCreateCommentOnMissingPost(t *testing.T) {
	r, mock, _ := newRouter(t)
	mock.ExpectQuery(`INSERT INTO comments`).WillReturnError(&pq.Error{Code: "23503"})

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/comments", `{"post_id":99,"content":"oi"}`).Code)
}

func TestCreateCommentValidation(t *testing.T) {
	r, _, _ := newRouter(t)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/comments", `{"content":"oi"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/comments", `{"post_id":1,"content":"  "}`).Code)
	long := strings.Repeat("a", maxCommentLen+1)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/comments", `{"post_id":1,"content":"`+long+`"}`).Code)
}

func TestDeleteComment(t *testing.T) {
	r, mock, _ := newRouter(t)

	mock.ExpectExec(`DELETE FROM comments`).WithArgs(int64(3), "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/comments/3", "").Code)

	mock.ExpectExec(`DELETE FROM comments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WHERE c.id = \$1`).
		WillReturnRows(sqlmock.NewRows(commentCols).AddRow(3, 7, "u-2", "oi", time.Now(), "bob", "", ""))
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/comments/3", "").Code)

	mock.ExpectExec(`DELETE FROM comments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WHERE c.id = \$1`).WillReturnRows(sqlmock.NewRows(commentCols))
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/comments/3", "").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByPostIsOldestFirst(t *testing.T) {
	r, mock, _ := newRouter(t)
	mock.ExpectQuery(`WHERE c.post_id = \$1\s+ORDER BY c.created_at ASC`).WithArgs(int64(7), 50, 0).
		WillReturnRows(sqlmock.NewRows(commentCols).
			AddRow(1, 7, "u-1", "primeiro", time.Now(), "alice", "", "").
			AddRow(2, 7, "u-2", "segundo", time.Now(), "bob", "", ""))

	w := do(r, http.MethodGet, "/api/comments/post/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, strings.Index(w.Body.String(), "primeiro"), strings.Index(w.Body.String(), "segundo"))
}
