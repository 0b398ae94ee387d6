package restaurants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastfood/pkg/models"
)

var restaurantCols = []string{
	"id", "name", "description", "address", "city", "state", "category", "price_level", "rating", "rating_count",
	"latitude", "longitude", "phone", "website", "image_url", "source", "external_id", "status", "owner_id", "created_by",
	"created_at", "updated_at",
}

func restaurantRow(rows *sqlmock.Rows, id int64, name, address string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, name, "", address, "Franca", "SP", "restaurant", 2, 4.5, 30,
		-20.53, -47.40, "", "", "", "user", "", "active", nil, nil, now, now)
}

func TestCreateUniqueReturnsExistingOnNameOrAddressMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(createLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WHERE LOWER\(name\) = LOWER\(\$1\) OR LOWER\(address\) = LOWER\(\$2\)`).
		WithArgs("Cantina X", "Rua A, 1").
		WillReturnRows(restaurantRow(sqlmock.NewRows(restaurantCols), 7, "cantina x", "Rua B, 2"))
	mock.ExpectRollback()

	err = NewRepo(db).CreateUnique(context.Background(), &models.Restaurant{Name: "Cantina X", Address: "Rua A, 1"})

	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, int64(7), dup.Existing.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUniqueInsertsWithDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM restaurants`).WillReturnRows(sqlmock.NewRows(restaurantCols))
	mock.ExpectQuery(`INSERT INTO restaurants`).
		WithArgs("Cantina X", "", "Rua A, 1", "", "", "restaurant", 3, 0.0, 0,
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", "", "user", "", "active", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
	mock.ExpectCommit()

	rest := &models.Restaurant{Name: "Cantina X", Address: "Rua A, 1"}
	require.NoError(t, NewRepo(db).CreateUnique(context.Background(), rest))
	assert.Equal(t, int64(11), rest.ID)
	assert.Equal(t, 3, rest.PriceLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO restaurants`).WillReturnError(&pq.Error{Code: "23505"})

	err = NewRepo(db).Insert(context.Background(), db, &models.Restaurant{Name: "A", Address: "B"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestBuildListSQLNumbersPlaceholders(t *testing.T) {
	sqlStr, args := buildListSQL(ListQuery{Q: "pizza", Category: "bar", MinPrice: 2, Limit: 10, Offset: 5}, false)

	assert.Contains(t, sqlStr, "name ILIKE $1 OR description ILIKE $1")
	assert.Contains(t, sqlStr, "LOWER(category) = LOWER($2)")
	assert.Contains(t, sqlStr, "price_level >= $3")
	assert.Contains(t, sqlStr, "LIMIT $4 OFFSET $5")
	assert.Equal(t, []any{"%pizza%", "bar", 2, 10, 5}, args)

	countSQL, countArgs := buildListSQL(ListQuery{}, true)
	assert.Equal(t, "SELECT COUNT(*) FROM restaurants WHERE status = 'active'", countSQL)
	assert.Empty(t, countArgs)
}
