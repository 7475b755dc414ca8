package tool_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindexer/features/tool"
)

var toolColumns = []string{"id", "name", "description", "is_active", "created_at"}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := tool.NewPostgresRepo(db)
	query := regexp.QuoteMeta("SELECT id, name, description, is_active, created_at FROM tools WHERE id = $1")

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("tool-1").
			WillReturnRows(sqlmock.NewRows(toolColumns).AddRow("tool-1", "Notion", "notes", true, time.Now()))

		got, err := repo.Get(context.Background(), "tool-1")
		require.NoError(t, err)
		assert.Equal(t, "Notion", got.Name)
		assert.True(t, got.IsActive)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(toolColumns))

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, tool.ErrNotFound)
	})

	t.Run("Malformed ID", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("not-a-uuid").
			WillReturnError(&pq.Error{Code: "22P02"})

		_, err := repo.Get(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, tool.ErrNotFound)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("tool-1").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Get(context.Background(), "tool-1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, tool.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := tool.NewPostgresRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, is_active, created_at FROM tools ORDER BY name")).
		WillReturnRows(sqlmock.NewRows(toolColumns).
			AddRow("1", "Asana", "", true, now).
			AddRow("2", "Zapier", "", false, now))

	tools, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "Asana", tools[0].Name)
	assert.False(t, tools[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := tool.NewPostgresRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tools (name, description, is_active) VALUES ($1, $2, $3) RETURNING id, created_at")).
		WithArgs("Linear", "issues", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("new-id", now))

	tl := &tool.Tool{Name: "Linear", Description: "issues", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), tl))
	assert.Equal(t, "new-id", tl.ID)
	assert.Equal(t, now, tl.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tools")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := tool.NewPostgresRepo(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
