package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/management-backend/models"
	"github.com/yashrajoria/management-backend/repository"
)

func TestOrderTransitionLocksRowAndWritesStatus(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status"}).AddRow(3, 7, "created"))
	mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE order_id = \$1 ORDER BY id ASC`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "location_id", "quantity", "reservation_id"}).
			AddRow(1, 3, 1, 1, 2, 11))
	mock.ExpectExec(`UPDATE "orders" SET "status"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := repo.Transition(context.Background(), 3, func(o *models.Order) (models.OrderStatus, error) {
		require.Len(t, o.Items, 1)
		assert.Equal(t, uint(11), o.Items[0].ReservationID)
		return models.OrderConfirmed, nil
	})

	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, order.Status)
}

func TestOrderTransitionRollsBackWhenRejected(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)
	conflict := errors.New("already confirmed")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status"}).AddRow(3, 7, "confirmed"))
	mock.ExpectQuery(`SELECT \* FROM "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), 3, func(*models.Order) (models.OrderStatus, error) {
		return "", conflict
	})

	assert.ErrorIs(t, err, conflict)
}

func TestOrderTransitionNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Transition(context.Background(), 404, func(*models.Order) (models.OrderStatus, error) {
		t.Fatal("callback must not run for a missing order")
		return "", nil
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
