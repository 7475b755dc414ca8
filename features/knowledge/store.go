package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Store applies per-tool content-hash dedup on top of a Repository. Chunks
// are handled one at a time and a failing chunk never aborts the batch.
type Store struct {
	repo      Repository
	batchSize int
}

func NewStore(repo Repository, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Store{repo: repo, batchSize: batchSize}
}

func (s *Store) Save(ctx context.Context, toolID string, chunks []Chunk) StoreSummary {
	sum := StoreSummary{Total: len(chunks)}

	for i := range chunks {
		c := &chunks[i]
		c.ToolID = toolID
		if c.ContentHash == "" {
			c.ContentHash = ContentHash(c.Content)
		}

		exists, err := s.repo.ExistsByHash(ctx, toolID, c.ContentHash)
		switch {
		case err != nil:
			sum.Failed++
			slog.ErrorContext(ctx, "duplicate lookup failed", "chunk_index", c.ChunkIndex, "error", err)
		case exists:
			sum.Skipped++
			slog.DebugContext(ctx, "skipping duplicate chunk", "chunk_index", c.ChunkIndex, "content_hash", c.ContentHash)
		default:
			err := s.repo.Insert(ctx, c)
			switch {
			case err == nil:
				sum.Stored++
			case errors.Is(err, ErrDuplicate):
				sum.Skipped++
				slog.WarnContext(ctx, "chunk stored concurrently, skipping", "chunk_index", c.ChunkIndex, "content_hash", c.ContentHash)
			default:
				sum.Failed++
				slog.ErrorContext(ctx, "failed to store chunk", "chunk_index", c.ChunkIndex, "error", err)
			}
		}

		if (i+1)%s.batchSize == 0 {
			slog.InfoContext(ctx, "storing progress", "done", i+1, "total", len(chunks))
		}
	}

	slog.InfoContext(ctx, "chunks stored", "stored", sum.Stored, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum
}

// Cleanup deletes stored chunks of a tool and returns how many rows went away.
func (s *Store) Cleanup(ctx context.Context, toolID, sourcePath string) (int64, error) {
	n, err := s.repo.Delete(ctx, toolID, sourcePath)
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup: %v", ErrStorage, err)
	}
	slog.InfoContext(ctx, "knowledge cleaned up", "source_path", sourcePath, "deleted", n)
	return n, nil
}
