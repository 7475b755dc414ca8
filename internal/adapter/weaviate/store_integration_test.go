package weaviate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ragindexer/features/knowledge"
	"ragindexer/internal/adapter/weaviate"
	"ragindexer/internal/testutils"
	"ragindexer/internal/vector"
)

func TestWeaviateStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()
	require.NoError(t, vector.EnsureSchema(ctx, vector.SchemaFor(s.Weaviate)))

	store := weaviate.NewStore(s.Weaviate)

	chunk := func(content, path string, idx int, score float64) *knowledge.Chunk {
		return &knowledge.Chunk{
			ToolID:       "tool-1",
			Content:      content,
			ChunkIndex:   idx,
			SourcePath:   path,
			SourceType:   "markdown",
			ContentHash:  knowledge.ContentHash(content),
			Embedding:    []float32{0.1, 0.2, 0.3},
			QualityScore: score,
			IsActive:     true,
		}
	}

	a := chunk("Postgres is a database", "/docs/a.md", 0, 0.7)
	require.NoError(t, store.Insert(ctx, a))
	require.NoError(t, store.Insert(ctx, chunk("Weaviate stores vectors", "/docs/a.md", 1, 0.9)))
	require.NoError(t, store.Insert(ctx, chunk("NSQ moves messages", "/docs/b.md", 0, 0.5)))

	// Same content for the same tool is rejected.
	err := store.Insert(ctx, chunk("Postgres is a database", "/docs/a.md", 0, 0.7))
	assert.ErrorIs(t, err, knowledge.ErrDuplicate)

	exists, err := store.ExistsByHash(ctx, "tool-1", a.ContentHash)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := store.CountByTool(ctx, "tool-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	top, err := store.TopChunks(ctx, "tool-1", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 0.9, top[0].QualityScore)

	sources, err := store.Sources(ctx, "tool-1")
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	n, err := store.Delete(ctx, "tool-1", "/docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Delete(ctx, "tool-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
