package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragindexer/features/knowledge"
	"ragindexer/features/tool"
	"ragindexer/internal/testutils"
)

func TestKnowledgeRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()

	tl := &tool.Tool{Name: "postgres", Description: "Postgres docs", IsActive: true}
	require.NoError(t, tool.NewPostgresRepo(s.DB).Create(ctx, tl))

	repo := knowledge.NewPostgresRepo(s.DB)

	newChunk := func(content, path string, idx int, score float64) *knowledge.Chunk {
		return &knowledge.Chunk{
			ToolID:            tl.ID,
			Content:           content,
			ChunkIndex:        idx,
			SourcePath:        path,
			SourceType:        "markdown",
			SourceTitle:       "Docs",
			ContentHash:       knowledge.ContentHash(content),
			Embedding:         []float32{0.1, 0.2, 0.3},
			QualityScore:      score,
			ProcessingVersion: "1.0",
			IsActive:          true,
		}
	}

	a := newChunk("Postgres stores rows in heap pages.", "/docs/a.md", 0, 0.7)
	require.NoError(t, repo.Insert(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	require.NoError(t, repo.Insert(ctx, newChunk("Indexes speed up lookups.", "/docs/a.md", 1, 0.9)))
	require.NoError(t, repo.Insert(ctx, newChunk("Vacuum reclaims space.", "/docs/b.md", 0, 0.5)))

	err := repo.Insert(ctx, newChunk("Postgres stores rows in heap pages.", "/docs/c.md", 0, 0.7))
	assert.ErrorIs(t, err, knowledge.ErrDuplicate)

	exists, err := repo.ExistsByHash(ctx, tl.ID, a.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.CountByTool(ctx, tl.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	sources, err := repo.Sources(ctx, tl.ID)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	top, err := repo.TopChunks(ctx, tl.ID, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 0.9, top[0].QualityScore)

	n, err := repo.Delete(ctx, tl.ID, "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.Delete(ctx, tl.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	total, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
