package owner

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
	"beastfood/internal/restaurants"
	"beastfood/pkg/models"
)

var restaurantCols = []string{
	"id", "name", "description", "address", "city", "state", "category", "price_level", "rating", "rating_count",
	"latitude", "longitude", "phone", "website", "image_url", "source", "external_id", "status", "owner_id",
	"created_by", "created_at", "updated_at",
}

func restaurantRow(id int64, owner any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(restaurantCols).AddRow(id, "Bar do Zé", "", "Av. Brasil, 500", "Franca", "SP", "bar", 2,
		4.1, 12, nil, nil, "", "", "", "user", "", "active", owner, nil, now, now)
}

func newRouter(t *testing.T, userID, role string) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	NewHandler(NewService(restaurants.NewRepo(db))).RegisterRoutes(r.Group("/api/restaurant-owner"), func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: userID, Role: role})
		c.Next()
	})
	return r, mock
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlainUsersAreRejected(t *testing.T) {
	r, _ := newRouter(t, "u-1", auth.RoleUser)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/restaurant-owner/restaurants", "").Code)
}

func TestMineListsOwnedRestaurants(t *testing.T) {
	r, mock := newRouter(t, "o-1", auth.RoleOwner)
	mock.ExpectQuery(`WHERE owner_id = \$1`).WithArgs("o-1").WillReturnRows(restaurantRow(4, "o-1"))

	w := do(r, http.MethodGet, "/api/restaurant-owner/restaurants", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Bar do Zé"`)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	r, mock := newRouter(t, "o-1", auth.RoleOwner)
	mock.ExpectQuery(`FROM restaurants WHERE id = \$1`).WithArgs(int64(4)).WillReturnRows(restaurantRow(4, "o-2"))

	w := do(r, http.MethodPut, "/api/restaurant-owner/restaurants/4", `{"phone":"16 3333-0000"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByOwner(t *testing.T) {
	r, mock := newRouter(t, "o-1", auth.RoleOwner)
	mock.ExpectQuery(`FROM restaurants WHERE id = \$1`).WillReturnRows(restaurantRow(4, "o-1"))
	mock.ExpectExec(`UPDATE restaurants SET phone = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs("16 3333-0000", int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM restaurants WHERE id = \$1`).WillReturnRows(restaurantRow(4, "o-1"))

	w := do(r, http.MethodPut, "/api/restaurant-owner/restaurants/4", `{"phone":"16 3333-0000"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminBypassesOwnership(t *testing.T) {
	r, mock := newRouter(t, "a-1", auth.RoleAdmin)
	mock.ExpectQuery(`FROM restaurants WHERE id = \$1`).WillReturnRows(restaurantRow(4, nil))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM restaurant_services`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO restaurant_services`).WithArgs(int64(4), "delivery").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO restaurant_services`).WithArgs(int64(4), "wifi").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := do(r, http.MethodPut, "/api/restaurant-owner/restaurants/4/services", `{"items":["delivery","Delivery"," wifi "]}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingRestaurant(t *testing.T) {
	r, mock := newRouter(t, "o-1", auth.RoleOwner)
	mock.ExpectQuery(`FROM restaurants WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(restaurantCols))
	assert.Equal(t, http.StatusNotFound,
		do(r, http.MethodPut, "/api/restaurant-owner/restaurants/9/highlights", `{"items":["rodízio"]}`).Code)
}

func TestReplaceHours(t *testing.T) {
	r, mock := newRouter(t, "o-1", auth.RoleOwner)
	mock.ExpectQuery(`FROM restaurants WHERE id = \$1`).WillReturnRows(restaurantRow(4, "o-1"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM restaurant_operating_hours`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO restaurant_operating_hours`).WithArgs(int64(4), 1, "11:00", "23:00", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO restaurant_operating_hours`).WithArgs(int64(4), 0, "", "", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := do(r, http.MethodPut, "/api/restaurant-owner/restaurants/4/hours",
		`{"hours":[{"day_of_week":1,"open_time":"11:00","close_time":"23:00"},{"day_of_week":0,"closed":true}]}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateHours(t *testing.T) {
	ok := []models.OperatingHour{{DayOfWeek: 6, OpenTime: "18:00", CloseTime: "23:59"}}
	assert.NoError(t, ValidateHours(ok))

	for _, bad := range [][]models.OperatingHour{
		{{DayOfWeek: 7, Closed: true}},
		{{DayOfWeek: 1, OpenTime: "25:00", CloseTime: "23:00"}},
		{{DayOfWeek: 1, OpenTime: "9:00", CloseTime: "23:00"}},
		{{DayOfWeek: 2, Closed: true}, {DayOfWeek: 2, Closed: true}},
	} {
		assert.Error(t, ValidateHours(bad))
	}
}
