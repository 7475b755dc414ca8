package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const previewLength = 200

type Repository interface {
	ExistsByHash(ctx context.Context, toolID, contentHash string) (bool, error)
	Insert(ctx context.Context, c *Chunk) error
	// Delete removes a tool's chunks, optionally only those of sourcePath.
	Delete(ctx context.Context, toolID, sourcePath string) (int64, error)
	CountByTool(ctx context.Context, toolID string) (int, error)
	Sources(ctx context.Context, toolID string) ([]SourceStats, error)
	TopChunks(ctx context.Context, toolID string, limit int) ([]TopChunk, error)
	CountChunks(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ExistsByHash(ctx context.Context, toolID, contentHash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM rag_knowledge_chunks WHERE tool_id = $1 AND content_hash = $2)`
	err := r.db.QueryRowContext(ctx, query, toolID, contentHash).Scan(&exists)
	return exists, err
}

func (r *PostgresRepo) Insert(ctx context.Context, c *Chunk) error {
	meta := c.Metadata
	if len(meta) == 0 {
		meta = []byte("{}")
	}

	query := `INSERT INTO rag_knowledge_chunks
		(tool_id, content, chunk_index, source_path, source_type, source_title, content_hash, embedding, quality_score, source_metadata, processing_version, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ToolID, c.Content, c.ChunkIndex, c.SourcePath, c.SourceType, c.SourceTitle, c.ContentHash,
		pgvector.NewVector(c.Embedding), c.QualityScore, []byte(meta), c.ProcessingVersion, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: insert chunk: %v", ErrStorage, err)
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, toolID, sourcePath string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if sourcePath == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM rag_knowledge_chunks WHERE tool_id = $1`, toolID)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM rag_knowledge_chunks WHERE tool_id = $1 AND source_path = $2`, toolID, sourcePath)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepo) CountByTool(ctx context.Context, toolID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_knowledge_chunks WHERE tool_id = $1`, toolID).Scan(&count)
	return count, err
}

func (r *PostgresRepo) Sources(ctx context.Context, toolID string) ([]SourceStats, error) {
	query := `SELECT source_path, source_type, source_title, COUNT(*), MAX(created_at)
		FROM rag_knowledge_chunks WHERE tool_id = $1
		GROUP BY source_path, source_type, source_title
		ORDER BY source_path`
	rows, err := r.db.QueryContext(ctx, query, toolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceStats
	for rows.Next() {
		var s SourceStats
		if err := rows.Scan(&s.SourcePath, &s.SourceType, &s.SourceTitle, &s.ChunkCount, &s.LastIndexed); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) TopChunks(ctx context.Context, toolID string, limit int) ([]TopChunk, error) {
	query := `SELECT id, source_path, chunk_index, quality_score, LEFT(content, $3)
		FROM rag_knowledge_chunks WHERE tool_id = $1
		ORDER BY quality_score DESC, chunk_index
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, toolID, limit, previewLength)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopChunk
	for rows.Next() {
		var c TopChunk
		if err := rows.Scan(&c.ID, &c.SourcePath, &c.ChunkIndex, &c.QualityScore, &c.Preview); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_knowledge_chunks`).Scan(&count)
	return count, err
}
