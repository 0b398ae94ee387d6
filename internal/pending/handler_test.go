package pending

import (
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
	"beastfood/internal/notify"
	"beastfood/internal/restaurants"
	"beastfood/pkg/logger"
	"beastfood/pkg/models"
)

type testEnv struct {
	router *gin.Engine
	db     sqlmock.Sqlmock
	notes  sqlmock.Sqlmock
}

func newTestEnv(t *testing.T, role string) testEnv {
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
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "admin-1", Role: role})
		c.Next()
	}

	r := gin.New()
	NewHandler(NewRepo(db, restaurants.NewRepo(db)), svc).RegisterRoutes(r.Group("/api/pending-restaurants"), requireAuth)
	return testEnv{router: r, db: mock, notes: nmock}
}

func (e testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestApproveEndpointNotifiesSubmitter(t *testing.T) {
	env := newTestEnv(t, auth.RoleAdmin)
	now := time.Now()

	env.db.ExpectBegin()
	env.db.ExpectQuery(`FOR UPDATE`).WillReturnRows(pendingRow(3, "Cantina X", models.PendingStatusPending, nil))
	expectLockAndNoDuplicate(env.db)
	env.db.ExpectQuery(`INSERT INTO restaurants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(21, now, now))
	env.db.ExpectQuery(`UPDATE pending_restaurants`).WillReturnRows(sqlmock.NewRows([]string{"reviewed_at"}).AddRow(now))
	env.db.ExpectCommit()

	env.notes.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("u-7", "admin-1", models.NotifyRestaurantApproved, sqlmock.AnyArg(), "restaurant", int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	env.notes.ExpectQuery(`FROM users WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "avatar_url"}).AddRow("admin-1", "admin", "", ""))

	w := env.do(http.MethodPost, "/api/pending-restaurants/3/approve", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"approved"`)
	assert.NoError(t, env.db.ExpectationsWereMet())
	assert.NoError(t, env.notes.ExpectationsWereMet())
}

func TestApproveEndpointConflictWhenNotPending(t *testing.T) {
	env := newTestEnv(t, auth.RoleAdmin)

	env.db.ExpectBegin()
	env.db.ExpectQuery(`FOR UPDATE`).WillReturnRows(pendingRow(3, "Cantina X", models.PendingStatusApproved, nil))
	env.db.ExpectRollback()

	w := env.do(http.MethodPost, "/api/pending-restaurants/3/approve", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, env.notes.ExpectationsWereMet())
}

func TestReviewRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, auth.RoleUser)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/pending-restaurants/3/approve", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/pending-restaurants/3/reject", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/pending-restaurants", "").Code)
}

func TestSubmitNotifiesAdmins(t *testing.T) {
	env := newTestEnv(t, auth.RoleUser)
	now := time.Now()

	env.db.ExpectQuery(`INSERT INTO pending_restaurants`).
		WithArgs("Cantina X", "Rua A, 1", "", "", "restaurant", "", 3, sqlmock.AnyArg(), sqlmock.AnyArg(), "admin-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))

	env.notes.ExpectQuery(`SELECT id FROM users WHERE role = 'admin'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("admin-2"))
	env.notes.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("admin-2", "admin-1", models.NotifyNewSuggestion, sqlmock.AnyArg(), "pending_restaurant", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	env.notes.ExpectQuery(`FROM users WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "avatar_url"}))

	w := env.do(http.MethodPost, "/api/pending-restaurants", `{"name":" Cantina X ","address":"Rua A, 1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.NoError(t, env.db.ExpectationsWereMet())
	assert.NoError(t, env.notes.ExpectationsWereMet())
}

func TestSubmitValidates(t *testing.T) {
	env := newTestEnv(t, auth.RoleUser)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/pending-restaurants", `{"name":"X"}`).Code)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t, auth.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/pending-restaurants?status=lost", "").Code)
}
