package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nuvemautoma/hot-class/internal/community/domain"
	repo "github.com/nuvemautoma/hot-class/internal/community/repository/postgres"
	autherror "github.com/nuvemautoma/hot-class/internal/errors"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	r := repo.NewPostgresRepository(mock)
	now := time.Now()
	target := "user-1"
	columns := []string{"id", "title", "message", "icon", "user_id", "created_at", "read"}

	t.Run("broadcasts and targeted notifications", func(t *testing.T) {
		mock.ExpectQuery("FROM notifications").
			WithArgs("user-1", 20).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("n-2", "Para você", "Olá", "bell", &target, now, false).
				AddRow("n-1", "Aviso geral", "Manutenção", "info", (*string)(nil), now.Add(-time.Hour), true))

		notifications, err := r.ListForUser(ctx, "user-1", 20)
		require.NoError(t, err)
		require.Len(t, notifications, 2)
		require.NotNil(t, notifications[0].UserID)
		assert.Equal(t, "user-1", *notifications[0].UserID)
		assert.False(t, notifications[0].Read)
		assert.Nil(t, notifications[1].UserID)
		assert.True(t, notifications[1].Read)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("FROM notifications").
			WithArgs("user-1", 20).
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.ListForUser(ctx, "user-1", 20)
		assert.Error(t, err)
	})
}

func TestCountUnread(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.NewPostgresRepository(mock).CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNotificationWrites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	r := repo.NewPostgresRepository(mock)
	n := &domain.Notification{ID: "n-1", Title: "Aviso", Message: "Olá", CreatedAt: time.Now()}

	t.Run("create broadcast", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO notifications").
			WithArgs(n.ID, n.Title, n.Message, n.Icon, n.UserID, n.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, r.CreateNotification(ctx, n))
	})

	t.Run("delete missing", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM notifications").
			WithArgs("missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, r.DeleteNotification(ctx, "missing"), autherror.ErrNotificationNotFound)
	})

	t.Run("mark read", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO notification_reads").
			WithArgs("n-1", "user-1").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, r.MarkRead(ctx, "user-1", "n-1"))
	})

	t.Run("mark read on invisible notification", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO notification_reads").
			WithArgs("n-9", "user-1").
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		assert.ErrorIs(t, r.MarkRead(ctx, "user-1", "n-9"), autherror.ErrNotificationNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
