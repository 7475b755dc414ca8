package knowledge

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrToolNotFound = fmt.Errorf("%w: tool not found", ErrValidation)
	ErrNoChunks     = fmt.Errorf("%w: no chunks generated from document", ErrValidation)
	ErrNoEmbeddings = fmt.Errorf("%w: no valid embeddings generated", ErrValidation)

	ErrStorage = errors.New("storage error")
	// ErrDuplicate is returned by repositories when the (tool_id, content_hash)
	// pair already exists.
	ErrDuplicate = fmt.Errorf("%w: duplicate chunk", ErrStorage)
)

type State string

const (
	StateDetectingType State = "detecting_type"
	StateExtracting    State = "extracting"
	StateChunking      State = "chunking"
	StateEmbedding     State = "embedding"
	StateStoring       State = "storing"
	StateSummarizing   State = "summarizing"
	StateSuccess       State = "success"
	StateFailed        State = "failed"
)

// Chunk is one stored, embedded segment of a source document.
type Chunk struct {
	ID                string          `json:"id"`
	ToolID            string          `json:"tool_id"`
	Content           string          `json:"content"`
	ChunkIndex        int             `json:"chunk_index"`
	SourcePath        string          `json:"source_path"`
	SourceType        string          `json:"source_type"`
	SourceTitle       string          `json:"source_title"`
	ContentHash       string          `json:"content_hash"`
	Embedding         []float32       `json:"-"`
	QualityScore      float64         `json:"quality_score"`
	Metadata          json.RawMessage `json:"source_metadata,omitempty"`
	ProcessingVersion string          `json:"processing_version"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ContentHash is the dedup key of a chunk: lowercase hex MD5 of its content.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// StoreSummary counts what happened to chunks handed to the store.
// Stored+Skipped+Failed always equals Total.
type StoreSummary struct {
	Total   int `json:"total"`
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Summary struct {
	TotalChunksProcessed int `json:"total_chunks_processed"`
	ChunksWithEmbeddings int `json:"chunks_with_embeddings"`
	TotalChunks          int `json:"total_chunks"`
	Stored               int `json:"stored"`
	Skipped              int `json:"skipped"`
	Failed               int `json:"failed"`
}

type IndexRequest struct {
	ToolID     string `json:"tool_id"`
	SourcePath string `json:"source_path"`
	SourceType string `json:"source_type,omitempty"`
	Title      string `json:"title,omitempty"`
	// Attempt counts retries of a queued request.
	Attempt int `json:"attempt,omitempty"`
}

// Result is the outcome of one indexing run. Failures are reported here,
// never as a Go error.
type Result struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
	ToolID      string   `json:"tool_id"`
	ToolName    string   `json:"tool_name,omitempty"`
	SourcePath  string   `json:"source_path"`
	SourceType  string   `json:"source_type,omitempty"`
	SourceTitle string   `json:"source_title,omitempty"`
	State       State    `json:"state"`
	FailedAt    State    `json:"failed_at,omitempty"`
	Summary     *Summary `json:"processing_summary,omitempty"`

	// Err keeps the typed failure for errors.Is checks by callers.
	Err error `json:"-"`
}

type Stats struct {
	ToolID     string        `json:"tool_id"`
	ChunkCount int           `json:"chunk_count"`
	Sources    []SourceStats `json:"sources"`
	TopChunks  []TopChunk    `json:"top_chunks"`
}

type SourceStats struct {
	SourcePath  string    `json:"source_path"`
	SourceType  string    `json:"source_type"`
	SourceTitle string    `json:"source_title"`
	ChunkCount  int       `json:"chunk_count"`
	LastIndexed time.Time `json:"last_indexed"`
}

type TopChunk struct {
	ID           string  `json:"id"`
	SourcePath   string  `json:"source_path"`
	ChunkIndex   int     `json:"chunk_index"`
	QualityScore float64 `json:"quality_score"`
	Preview      string  `json:"preview"`
}
