package knowledge_test

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

	"ragindexer/features/knowledge"
)

const insertSQL = `INSERT INTO rag_knowledge_chunks
		(tool_id, content, chunk_index, source_path, source_type, source_title, content_hash, embedding, quality_score, source_metadata, processing_version, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

func TestPostgresRepo_ExistsByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := knowledge.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM rag_knowledge_chunks WHERE tool_id = $1 AND content_hash = $2)")).
		WithArgs("t1", "abc").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByHash(context.Background(), "t1", "abc")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := knowledge.NewPostgresRepo(db)
	chunk := func() *knowledge.Chunk {
		return &knowledge.Chunk{
			ToolID: "t1", Content: "body", ChunkIndex: 2, SourcePath: "/a.txt", SourceType: "text",
			SourceTitle: "a", ContentHash: "h", Embedding: []float32{0.5}, QualityScore: 0.7,
			ProcessingVersion: "1.0", IsActive: true,
		}
	}

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
			WithArgs("t1", "body", 2, "/a.txt", "text", "a", "h", sqlmock.AnyArg(), 0.7, sqlmock.AnyArg(), "1.0", true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("row-1", now))

		c := chunk()
		require.NoError(t, repo.Insert(context.Background(), c))
		assert.Equal(t, "row-1", c.ID)
	})

	t.Run("Unique Violation", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Insert(context.Background(), chunk())
		assert.ErrorIs(t, err, knowledge.ErrDuplicate)
	})

	t.Run("Other Error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(insertSQL)).
			WillReturnError(errors.New("connection lost"))

		err := repo.Insert(context.Background(), chunk())
		assert.ErrorIs(t, err, knowledge.ErrStorage)
		assert.NotErrorIs(t, err, knowledge.ErrDuplicate)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := knowledge.NewPostgresRepo(db)
	ctx := context.Background()

	t.Run("Whole Tool", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rag_knowledge_chunks WHERE tool_id = $1")).
			WithArgs("X").
			WillReturnResult(sqlmock.NewResult(0, 7))

		n, err := repo.Delete(ctx, "X", "")
		require.NoError(t, err)
		assert.EqualValues(t, 7, n)
	})

	t.Run("Nothing Left", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rag_knowledge_chunks WHERE tool_id = $1")).
			WithArgs("X").
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := repo.Delete(ctx, "X", "")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Single Source", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rag_knowledge_chunks WHERE tool_id = $1 AND source_path = $2")).
			WithArgs("X", "/a.pdf").
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := repo.Delete(ctx, "X", "/a.pdf")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_StatsQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := knowledge.NewPostgresRepo(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rag_knowledge_chunks WHERE tool_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT source_path, source_type, source_title, COUNT(*), MAX(created_at)")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"source_path", "source_type", "source_title", "count", "max"}).
			AddRow("/a.pdf", "pdf", "a", 3, now).
			AddRow("/b.md", "markdown", "b", 2, now))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, source_path, chunk_index, quality_score, LEFT(content, $3)")).
		WithArgs("t1", 10, 200).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_path", "chunk_index", "quality_score", "left"}).
			AddRow("c1", "/a.pdf", 0, 0.9, "preview"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rag_knowledge_chunks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByTool(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	sources, err := repo.Sources(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, 3, sources[0].ChunkCount)

	top, err := repo.TopChunks(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 0.9, top[0].QualityScore)

	all, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, all)

	assert.NoError(t, mock.ExpectationsWereMet())
}
