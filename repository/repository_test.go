package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gonzalo-olmedo/comicstore/models"
	"github.com/gonzalo-olmedo/comicstore/repository"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUserRepository_FindByEmail_PreloadsRole(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	userID := uuid.New()
	roleID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "first_name", "last_name", "address", "phone", "date_joined", "role_id", "updated_at"}).
			AddRow(userID, "ana@example.com", "hash", "Ana", "Lopez", "Calle 1", "555", now, roleID, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "roles" WHERE "roles"."id" = $1`)).
		WithArgs(roleID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(roleID, "seller"))

	user, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	require.NotNil(t, user.Role)
	assert.Equal(t, models.RoleSeller, user.RoleKind())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	user, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, user)
}

func TestUserRepository_Create(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	user := &models.User{ID: uuid.New(), Email: "new@example.com", Password: "hash", Address: "a", Phone: "1"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(user.ID))
	mock.ExpectCommit()

	assert.NoError(t, repo.Create(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	t.Run("writes given columns", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewUserRepository(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateProfile(context.Background(), uuid.New(), map[string]interface{}{"first_name": "Eva"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewUserRepository(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.UpdateProfile(context.Background(), uuid.New(), map[string]interface{}{"first_name": "Eva"})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("no fields is a no-op", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewUserRepository(gormDB)

		assert.NoError(t, repo.UpdateProfile(context.Background(), uuid.New(), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_RevokeRefreshToken(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "refresh_tokens" SET "revoked"=$1 WHERE token_id = $2 AND revoked = $3`)).
		WithArgs(true, "jti-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.RevokeRefreshTokenByTokenID(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_TransactionRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewUserRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.Transaction(context.Background(), func(tx repository.UserRepository) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepository_DeleteReportsRows(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewRoleRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "roles" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := repo.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCategoryRepository_FindAllOrdersByName(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCategoryRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" ORDER BY name ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(uuid.New(), "Manga").
			AddRow(uuid.New(), "Superheroes"))

	categories, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2)
	assert.Equal(t, "Manga", categories[0].Name)
}

func TestProductRepository_FindAllAppliesFilters(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)

	categoryID := uuid.New()
	inStock := true
	filter := repository.ProductFilter{CategoryID: &categoryID, Search: "batman", InStock: &inStock}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE category_id = $1 AND name ILIKE $2 AND stock > 0`)).
		WithArgs(categoryID, "%batman%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE category_id = $1 AND name ILIKE $2 AND stock > 0 ORDER BY name ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "category_id"}).
			AddRow(uuid.New(), "Batman: Year One", "12.50", 3, categoryID))

	products, total, err := repo.FindAll(context.Background(), filter, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("12.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindAllCountError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewProductRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products"`)).
		WillReturnError(errors.New("db down"))

	products, total, err := repo.FindAll(context.Background(), repository.ProductFilter{}, 0, 20)
	assert.Error(t, err)
	assert.Nil(t, products)
	assert.Zero(t, total)
}

func TestProductRepository_UpdateWritesOnlyGivenColumns(t *testing.T) {
	t.Run("price only", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewProductRepository(gormDB)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "products" SET "price"=\$1,"updated_at"=\$2 WHERE id = \$3`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Update(context.Background(), id, map[string]interface{}{"price": decimal.RequireFromString("14.00")})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewProductRepository(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Update(context.Background(), uuid.New(), map[string]interface{}{"name": "Maus"})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestOrderRepository_TransactionPlacesOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	productID := uuid.New()
	orderID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id IN \(\$1\) ORDER BY id FOR UPDATE`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "category_id"}).
			AddRow(productID, "Watchmen", "20.00", 5, uuid.New()))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(orderID))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	var placed *models.Order
	err := repo.Transaction(context.Background(), func(tx repository.OrderTx) error {
		products, err := tx.LockProducts(context.Background(), []uuid.UUID{productID})
		if err != nil {
			return err
		}
		require.Len(t, products, 1)

		ok, err := tx.DecrementStock(context.Background(), productID, 2)
		if err != nil {
			return err
		}
		require.True(t, ok)

		pid := productID
		placed = &models.Order{
			UserID:        &userID,
			State:         models.DefaultOrderState,
			PaymentMethod: models.DefaultPaymentMethod,
			TotalAmount:   decimal.RequireFromString("40.00"),
			OrderItems:    []models.OrderItem{{ProductID: &pid, Quantity: 2, UnitPrice: decimal.RequireFromString("20.00")}},
		}
		return tx.CreateOrder(context.Background(), placed)
	})
	require.NoError(t, err)
	assert.Equal(t, orderID, placed.ID)
	require.Len(t, placed.OrderItems, 1)
	assert.Equal(t, orderID, placed.OrderItems[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_DecrementStockInsufficient(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	errShort := errors.New("short")
	err := repo.Transaction(context.Background(), func(tx repository.OrderTx) error {
		ok, err := tx.DecrementStock(context.Background(), uuid.New(), 10)
		if err != nil {
			return err
		}
		if !ok {
			return errShort
		}
		return nil
	})
	assert.ErrorIs(t, err, errShort)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_FindByIDAndUserID_NotOwner(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE id = $1 AND user_id = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	order, err := repo.FindByIDAndUserID(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, order)
}
